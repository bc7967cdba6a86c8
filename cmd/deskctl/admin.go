package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"complaint-desk/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminIn service.AdminInput

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator (admins have no room number)",
	RunE:  runAdminCreate,
}

func init() {
	f := adminCreateCmd.Flags()
	f.StringVar(&adminIn.FullName, "name", "", "display name used in record logs")
	f.StringVar(&adminIn.Email, "email", "", "login email")
	f.StringVar(&adminIn.Password, "password", "", "login password")
	_ = adminCreateCmd.MarkFlagRequired("name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	a, closeFn, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := a.Users.CreateAdmin(cmd.Context(), adminIn)
	if err != nil {
		return err
	}
	logger(a).Info("admin created", zap.String("id", u.ID), zap.String("email", u.Email))
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s <%s> created\n", u.FullName, u.Email)
	return nil
}
