package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cablebill/cablebill/internal/app"
	"github.com/cablebill/cablebill/internal/auth"
	authdomain "github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"golang.org/x/term"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage staff accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a staff account",
	Long: `Create a staff account. The account is an administrator unless
--role collection_agent is given.

If --password is not provided, you will be prompted to enter it.

Examples:
  cablebill admin create --username admin --name "Head Office"
  cablebill admin create --username ravi --role collection_agent --password secret1`,
	RunE: runAdminCreate,
}

var (
	adminUsername string
	adminName     string
	adminPassword string
	adminRole     string
	adminEmail    string
	adminPhone    string
)

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "login name (required)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name (defaults to the username)")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "password (will prompt if not provided)")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", string(authdomain.RoleAdmin), "admin or collection_agent")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "email address")
	adminCreateCmd.Flags().StringVar(&adminPhone, "phone", "", "10-digit phone number")
	_ = adminCreateCmd.MarkFlagRequired("username")
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	password := adminPassword
	if password == "" {
		var err error
		password, err = promptPassword("Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	name := strings.TrimSpace(adminName)
	if name == "" {
		name = adminUsername
	}

	var users authdomain.Service
	return runWith(cmd.Context(), func(ctx context.Context) error {
		user, err := users.Register(ctx, nil, authdomain.RegisterRequest{
			Username: adminUsername,
			Password: password,
			Name:     name,
			Role:     adminRole,
			Email:    adminEmail,
			Phone:    adminPhone,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (id %s)\n", user.Role, user.Username, user.ID)
		return nil
	}, app.Core, migration.Module, auth.Module, fx.Populate(&users))
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}
