package config

// defaultAllow lists read-only commands considered safe to run without
// confirmation. Subcommand and glob patterns keep tools with destructive
// modes (wget, tar, package managers) restricted to their inspection forms.
var defaultAllow = []string{
	// File viewing and navigation
	"ls",
	"dir",
	"pwd",
	"cd",
	"find",
	"locate",
	"which",
	"whereis",
	"type",
	"file",
	"stat",
	"du",
	"df",
	// File content viewing
	"cat",
	"less",
	"more",
	"head",
	"tail",
	"strings",
	"xxd",
	"hexdump",
	// Text search
	"grep",
	"egrep",
	"fgrep",
	"rg",
	"ag",
	"ack",
	// Text processing
	"echo",
	"printf",
	"wc",
	"sort",
	"uniq",
	"cut",
	"tr",
	"sed",
	"awk",
	"jq",
	"yq",
	"fmt",
	"nl",
	"column",
	"paste",
	"join",
	"fold",
	"expand",
	"unexpand",
	// System information
	"date",
	"cal",
	"uptime",
	"w",
	"whoami",
	"id",
	"groups",
	"uname",
	"hostname",
	"lsb_release",
	"env",
	"printenv",
	"set",
	"locale",
	// Process information
	"ps",
	"top",
	"htop",
	"pgrep",
	"jobs",
	"lsof",
	// Network information
	"ip",
	"ifconfig",
	"netstat",
	"ss",
	"ping",
	"traceroute",
	"dig",
	"host",
	"nslookup",
	"whois",
	// Non-modifying network requests
	"curl",
	"wget:--spider *",
	"wget:-q --spider *",
	"nc:* * -z",
	"telnet",
	// Package information
	"apt-cache",
	"dpkg:-l",
	"dpkg:-l *",
	"rpm:-q",
	"rpm:-q *",
	"rpm:-qi *",
	"pacman:-Q",
	"pacman:-Qi *",
	"pacman:-Ql *",
	"brew:list",
	"brew:info *",
	"npm:list",
	"pip:list",
	"gem:list",
	"conda:list",
	// Version and help
	"version",
	"--version",
	"-v",
	"-V",
	"help",
	"--help",
	"-h",
	// Git read operations
	"git:status",
	"git:log",
	"git:show",
	"git:diff",
	"git:ls-files",
	"git:branch",
	"git:tag",
	"git:remote",
	"git:config -l",
	"git:config --list",
	// Docker read operations
	"docker:ps",
	"docker:images",
	"docker:volume ls",
	"docker:network ls",
	"docker:inspect *",
	// Common pipeline helpers
	"xargs:grep *",
	"xargs",
	// Language one-liners
	"python:-c *",
	"node:-e *",
	"ruby:-e *",
	// Archive inspection only; extraction stays unlisted
	"tar:-tf *",
	"tar:--list -f *",
	"unzip:-l *",
	"unzip:-v *",
	"gzip:-l *",
	"zip:-sf *",
}

// defaultDeny lists commands that can disrupt the host outright.
var defaultDeny = []string{
	// System power
	"shutdown",
	"reboot",
	"poweroff",
	"halt",
	// Disk and filesystem modification
	"umount",
	"mkfs",
	"fdisk",
	"parted",
	// Package management that modifies the system
	"apt-get:install*",
	"apt-get:remove*",
	"apt-get:purge*",
	"apt:install*",
	"apt:remove*",
	"apt:purge*",
	"yum:install*",
	"yum:remove*",
	"yum:update*",
	"pacman:-S*",
	"pacman:-R*",
	"pacman:-U*",
	// Interactive editors hang a non-interactive shell
	"nano",
	"vim",
	"vi",
	"emacs",
	"pico",
	"ed",
}

// DefaultPermissions returns the safe read-only policy used when no
// configuration file is found.
func DefaultPermissions() Permissions {
	ask := true
	return Permissions{
		Allow:            append([]string(nil), defaultAllow...),
		Deny:             append([]string(nil), defaultDeny...),
		AskIfUnspecified: &ask,
	}
}
