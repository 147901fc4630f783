package main

import (
	"fmt"
	"strings"
)

// flagSet is the result of parseFlags.
type flagSet struct {
	values map[string]string
	set    map[string]bool
	args   []string
}

// parseFlags splits args into --name options and positional arguments.
// valued lists the options that take a value; switches the ones that do not.
// "--" ends option parsing.
func parseFlags(args []string, valued, switches []string) (*flagSet, error) {
	takesValue := make(map[string]bool, len(valued)+len(switches))
	for _, name := range valued {
		takesValue[name] = true
	}
	for _, name := range switches {
		takesValue[name] = false
	}

	fs := &flagSet{values: map[string]string{}, set: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			fs.args = append(fs.args, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
			fs.args = append(fs.args, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg[2:], "=")
		wantValue, known := takesValue[name]
		if !known {
			return nil, fmt.Errorf("unknown option --%s", name)
		}
		switch {
		case !wantValue && hasValue:
			return nil, fmt.Errorf("--%s does not take a value", name)
		case wantValue && !hasValue:
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		fs.values[name] = value
		fs.set[name] = true
	}
	return fs, nil
}

// value returns the option's value, or def when it was not given.
func (fs *flagSet) value(name, def string) string {
	if v, ok := fs.values[name]; ok {
		return v
	}
	return def
}
