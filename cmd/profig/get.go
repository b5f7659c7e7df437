package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func getGetCmd() *cobra.Command {
	var profileName string

	getCmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print one effective option value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			prof, err := reg.Profile(profileName)
			if err != nil {
				return err
			}

			value, ok := prof.Effective().Get(args[0])
			if !ok {
				return fmt.Errorf("%s is not defined in profile %s", args[0], profileName)
			}
			cmd.Println(formatValue(value))
			return nil
		},
	}
	getCmd.Flags().StringVarP(&profileName, "profile", "p", "default", "profile to read")
	return getCmd
}

// formatValue renders a single option value for the terminal. Strings print
// bare, lists print comma-separated.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
