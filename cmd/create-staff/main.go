package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	email    string
	name     string
	password string
	role     string

	rootCmd = &cobra.Command{
		Use:   "create-staff",
		Short: "Manage municipal staff and admin accounts",
		Long: `create-staff grants elevated roles. Accounts registered through the
API are always citizens; use this tool to promote them or to create staff
accounts directly.`,
		SilenceUsage: true,
	}

	promoteCmd = &cobra.Command{
		Use:   "promote",
		Short: "Change the role of an existing user",
		RunE:  runPromote,
	}

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a new account with an elevated role",
		RunE:  runCreate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account email (required)")
	rootCmd.PersistentFlags().StringVar(&role, "role", "municipal_staff", "role to grant: citizen, municipal_staff or admin")
	_ = rootCmd.MarkPersistentFlagRequired("email")

	createCmd.Flags().StringVar(&name, "name", "", "display name (required)")
	createCmd.Flags().StringVar(&password, "password", "", "initial password (required)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(promoteCmd, createCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
