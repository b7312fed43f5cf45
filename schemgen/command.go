/*
	This file holds types and functions supporting command-line requests.  A Command
	bundles the operation name, positional arguments and "key=value" settings.
*/

package schemgen

import (
	"strings"
)

// Keys for setting various arguments within the command line via "key=value" strings.
const (
	KeyConfigFile = "config"
	KeyOutput     = "out"
	KeyBaseName   = "base"
	KeyShape      = "shape"
	KeyBlock      = "block"
	KeyTrueValue  = "true"
	KeyStore      = "store"
	KeyMaxSize    = "maxsize"
	KeyFormat     = "format"
)

// Command is a command-line request.  The first item in the string slice is the
// command name, e.g., "raw" or "tiles".  The other arguments are positional arguments
// or optional settings of the form "<key>=<value>".
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Setting scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Setting(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				value = elems[1]
				found = true
				return
			}
		}
	}
	return
}

// CommandArgs sets a variadic argument set of string pointers to the positional
// command arguments, ignoring setting arguments of the form "<key>=<value>".
// If there aren't enough arguments to set a target, the target is set to the
// empty string.  It returns an 'overflow' slice that has all arguments
// beyond those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	overflow = make([]string, 0, len(cmd))
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	curTarget := 0
	for _, arg := range cmd[1:] {
		if strings.Contains(arg, "=") {
			continue
		}
		if curTarget >= len(targets) {
			overflow = append(overflow, arg)
		} else {
			*(targets[curTarget]) = arg
		}
		curTarget++
	}
	return
}
