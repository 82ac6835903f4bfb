package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/attendai/internal/accounts"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage students",
}

var studentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a student",
	Long: `Register a student. A login is created with the roll number as both
username and initial password.

Example:
  attendai student add --name "Alice Smith" --roll R001 --class 10-A`,
	RunE: runStudentAdd,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List students and their enrollment",
	RunE:  runStudentList,
}

var studentDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a student with their attendance, login and enrolled faces",
	RunE:  runStudentDelete,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd, studentListCmd, studentDeleteCmd)

	studentAddCmd.Flags().String("name", "", "Full name (required)")
	studentAddCmd.Flags().String("roll", "", "Roll number (required)")
	studentAddCmd.Flags().String("class", "", "Class name (required)")
	studentAddCmd.Flags().String("email", "", "Email address")
	for _, name := range []string{"name", "roll", "class"} {
		_ = studentAddCmd.MarkFlagRequired(name)
	}

	studentListCmd.Flags().String("class", "", "Only list this class")
	studentListCmd.Flags().Bool("json", false, "Output as JSON")

	studentDeleteCmd.Flags().Int64("student", 0, "Student ID")
	studentDeleteCmd.Flags().String("roll", "", "Student roll number (alternative to --student)")
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	student := &database.Student{
		Name:      mustGetString(cmd, "name"),
		RollNo:    mustGetString(cmd, "roll"),
		ClassName: mustGetString(cmd, "class"),
		Email:     mustGetString(cmd, "email"),
	}
	if err := accounts.RegisterStudent(ctx, a.backend.Students, a.backend.Users, student); err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s) in class %s with id %d\n", student.Name, student.RollNo, student.ClassName, student.ID)
	fmt.Printf("Login: username %s, initial password %s\n", student.RollNo, student.RollNo)
	return nil
}

// studentRow is a student in list output.
type studentRow struct {
	database.Student
	Embeddings int `json:"embeddings"`
}

func runStudentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dir, err := a.loadDirectory(ctx)
	if err != nil {
		return err
	}

	className := mustGetString(cmd, "class")
	if className != "" {
		className = facematch.CanonicalClassName(className)
	}
	students, err := a.backend.Students.ListStudents(ctx, className)
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}

	rows := make([]studentRow, 0, len(students))
	for _, s := range students {
		rows = append(rows, studentRow{Student: s, Embeddings: len(dir.Vectors(s.ID))})
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLL\tNAME\tCLASS\tFACES")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", r.ID, r.RollNo, r.Name, r.ClassName, r.Embeddings)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d students\n", len(rows))
	return nil
}

func runStudentDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	student, err := resolveStudent(ctx, a.backend.Students, mustGetInt64(cmd, "student"), mustGetString(cmd, "roll"))
	if err != nil {
		return err
	}
	if err := a.backend.Students.DeleteStudent(ctx, student.ID); err != nil {
		return fmt.Errorf("deleting student: %w", err)
	}
	if err := a.service().Unenroll(ctx, student.ID); err != nil {
		fmt.Printf("Warning: failed to remove enrolled faces: %v\n", err)
	}

	fmt.Printf("Deleted %s (%s)\n", student.Name, student.RollNo)
	return nil
}
