package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// splitRelayArgs separates the relay's own flags from the child command
// line. Scanning stops at the first token that is not a flag, which names
// the executable, or right after "--". Flags the relay does not define are
// collected in order for the child; they never consume a value, so the
// token after one is still the executable.
func splitRelayArgs(fs *pflag.FlagSet, args []string) (relayArgs, command, passThrough []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return relayArgs, args[i+1:], passThrough
		}
		if len(arg) < 2 || arg[0] != '-' {
			return relayArgs, args[i:], passThrough
		}

		flag := lookupFlag(fs, arg)
		if flag == nil {
			passThrough = append(passThrough, arg)
			continue
		}
		relayArgs = append(relayArgs, arg)
		if !strings.Contains(arg, "=") && flag.NoOptDefVal == "" && i+1 < len(args) {
			i++
			relayArgs = append(relayArgs, args[i])
		}
	}
	return relayArgs, nil, passThrough
}

// lookupFlag resolves --name, --name=value and single-letter -x forms.
func lookupFlag(fs *pflag.FlagSet, arg string) *pflag.Flag {
	name, _, _ := strings.Cut(arg, "=")
	if strings.HasPrefix(name, "--") {
		return fs.Lookup(name[2:])
	}
	if len(name) == 2 {
		return fs.ShorthandLookup(name[1:])
	}
	return nil
}

// parseRelayArgs parses the relay flags in args into cmd's flag set and
// returns the child's argument vector, executable first, with unknown
// flags appended after the child's own arguments. The vector is empty when
// args names no executable.
func parseRelayArgs(cmd *cobra.Command, args []string) ([]string, error) {
	fs := cmd.Flags()
	fs.AddFlagSet(cmd.PersistentFlags())

	relayArgs, command, passThrough := splitRelayArgs(fs, args)
	if err := fs.Parse(relayArgs); err != nil {
		return nil, err
	}
	if len(command) == 0 {
		return nil, nil
	}
	return append(command, passThrough...), nil
}
