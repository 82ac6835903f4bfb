package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll FILE...",
	Short: "Enroll face images for a student",
	Long: `Extract one face embedding from each image and add it to the student's
enrolled set. Images without a detectable face are skipped and reported.

Examples:
  attendai enroll --student 12 alice1.jpg alice2.jpg
  attendai enroll --roll R001 photos/alice/*.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("student", 0, "Student ID")
	enrollCmd.Flags().String("roll", "", "Student roll number (alternative to --student)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
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
	if _, err := a.loadDirectory(ctx); err != nil {
		return err
	}

	images := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		images = append(images, data)
	}

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Enrolling "+student.Name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	result, err := a.service().Enroll(ctx, student.ID, images, attendance.WithProgress(func(done, total int) {
		_ = bar.Set(done)
	}))
	_ = bar.Finish()
	fmt.Println()
	if result == nil {
		return err
	}

	for _, msg := range result.Errors {
		fmt.Printf("  skipped %s\n", msg)
	}
	fmt.Printf("Enrolled %d of %d images for %s (%s), %d embeddings total\n",
		result.Added, len(images), student.Name, student.RollNo, result.Embeddings)
	if err != nil {
		return err
	}
	if result.Added == 0 {
		return errors.New("no faces were enrolled")
	}
	return nil
}

// resolveStudent finds a student by id or roll number.
func resolveStudent(ctx context.Context, students database.StudentReader, id int64, rollNo string) (*database.Student, error) {
	var (
		student *database.Student
		err     error
	)
	switch {
	case id > 0:
		student, err = students.GetStudent(ctx, id)
	case rollNo != "":
		student, err = students.GetStudentByRollNo(ctx, rollNo)
	default:
		return nil, errors.New("either --student or --roll is required")
	}
	if err != nil {
		return nil, fmt.Errorf("looking up student: %w", err)
	}
	if student == nil {
		return nil, attendance.ErrUnknownStudent
	}
	return student, nil
}
