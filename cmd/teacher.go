package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/spf13/cobra"
)

var teacherCmd = &cobra.Command{
	Use:   "teacher",
	Short: "Manage teacher accounts",
}

var teacherAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a teacher account",
	Long: `Create a teacher account that can run attendance sessions. Signed-in
teachers can also add colleagues with POST /api/v1/teachers.

Example:
  attendai teacher add --username admin --password 's3cret!' --name "Ada Lovelace"`,
	RunE: runTeacherAdd,
}

func init() {
	rootCmd.AddCommand(teacherCmd)
	teacherCmd.AddCommand(teacherAddCmd)

	teacherAddCmd.Flags().String("username", "", "Login name (required)")
	teacherAddCmd.Flags().String("password", "", fmt.Sprintf("Password, at least %d characters (required)", accounts.MinPasswordLength))
	teacherAddCmd.Flags().String("name", "", "Full name")
	teacherAddCmd.Flags().String("email", "", "Email address")
	teacherAddCmd.Flags().String("department", "", "Department")
	teacherAddCmd.Flags().String("subject", "", "Subject taught")
	teacherAddCmd.Flags().String("phone", "", "Phone number")
	_ = teacherAddCmd.MarkFlagRequired("username")
	_ = teacherAddCmd.MarkFlagRequired("password")
}

func runTeacherAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := accounts.CreateTeacher(ctx, a.backend.Users,
		mustGetString(cmd, "username"),
		mustGetString(cmd, "password"),
		accounts.TeacherProfile{
			FullName:   mustGetString(cmd, "name"),
			Email:      mustGetString(cmd, "email"),
			Department: mustGetString(cmd, "department"),
			Subject:    mustGetString(cmd, "subject"),
			Phone:      mustGetString(cmd, "phone"),
		},
	)
	if err != nil {
		return err
	}

	fmt.Printf("Created teacher %s with id %d\n", u.Username, u.ID)
	return nil
}
