package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/kozaktomas/attendai/internal/fingerprint"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the faces in an image against enrolled students",
	Long: `Diagnostic: extract every face from an image and print the closest
enrolled student with its cosine similarity. Nothing is recorded.

Examples:
  attendai match --image frame.jpg
  attendai match --image frame.jpg --threshold 0.35 --json`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("image", "", "Image file to match (required)")
	matchCmd.Flags().Float64("threshold", 0, "Match threshold (default MATCH_THRESHOLD or the model preset)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
	_ = matchCmd.MarkFlagRequired("image")
}

// faceMatch is one face of the image in match output.
type faceMatch struct {
	Face      int     `json:"face"`
	StudentID int64   `json:"student_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	RollNo    string  `json:"roll_no,omitempty"`
	Score     float64 `json:"score"`
	Matched   bool    `json:"matched"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	threshold := a.cfg.Recognition.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = mustGetFloat64(cmd, "threshold")
	}

	dir, err := a.loadDirectory(ctx)
	if err != nil {
		return err
	}

	path := mustGetString(cmd, "image")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	img, err := fingerprint.DecodeImage(data)
	if err != nil {
		return err
	}

	faces, err := a.extractor().Extract(ctx, img)
	if err != nil && !errors.Is(err, fingerprint.ErrNoFaceDetected) {
		return fmt.Errorf("extracting faces: %w", err)
	}

	results := make([]faceMatch, 0, len(faces))
	for i, face := range faces {
		m := facematch.Match(face, dir, threshold)
		fm := faceMatch{Face: i + 1, StudentID: m.StudentID, Score: m.Score, Matched: m.Matched}
		if m.StudentID != 0 {
			if s, err := a.backend.Students.GetStudent(ctx, m.StudentID); err == nil && s != nil {
				fm.Name, fm.RollNo = s.Name, s.RollNo
			}
		}
		results = append(results, fm)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Printf("Directory: %d students, %d embeddings, threshold %.2f\n", dir.Len(), dir.VectorCount(), threshold)
	if len(results) == 0 {
		fmt.Println("No faces detected")
		return nil
	}
	for _, r := range results {
		switch {
		case r.Matched:
			fmt.Printf("Face %d: %s (%s, id %d) score %.3f\n", r.Face, r.Name, r.RollNo, r.StudentID, r.Score)
		case r.StudentID != 0:
			fmt.Printf("Face %d: unrecognized, closest %s (id %d) score %.3f\n", r.Face, r.Name, r.StudentID, r.Score)
		default:
			fmt.Printf("Face %d: unrecognized, nobody enrolled\n", r.Face)
		}
	}
	return nil
}
