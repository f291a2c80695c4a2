// Package services contains core business logic
// Following Hexagonal Architecture: Services orchestrate domain logic using ports
package services

import (
	"fmt"
	"math"
	"sort"

	"facebot/internal/core/domain"
)

// User-facing message texts
const (
	// MsgPrompt is sent for every event that is not an image message
	MsgPrompt = "Please send a photo to diagnose!"

	// MsgPipelineError replaces the diagnosis when any pipeline step fails
	MsgPipelineError = "An error occurred, please wait and try again"

	// MsgNoFace is the zero-face diagnosis result
	MsgNoFace = "Could not detect a face in the photo."

	// MsgTooManyFaces is returned when more faces are found than one reply can cover
	MsgTooManyFaces = "Detected 6 or more faces; diagnosis supports at most 5 people."
)

// FormatDiagnosis transforms detected faces into the ordered reply batch.
// Pure function, no I/O.
//
// Contract: exactly len(faces) messages when 1 <= len(faces) <= 5, ordered
// left to right in the image; exactly one message otherwise.
func FormatDiagnosis(faces []domain.DetectedFace) []domain.ReplyMessage {
	if len(faces) == 0 {
		return []domain.ReplyMessage{domain.NewTextMessage(MsgNoFace)}
	}
	if len(faces) > domain.MaxReplyMessages {
		return []domain.ReplyMessage{domain.NewTextMessage(MsgTooManyFaces)}
	}

	// Order faces left to right. The sort must be stable: faces with the
	// same left edge keep their original relative order.
	sorted := make([]domain.DetectedFace, len(faces))
	copy(sorted, faces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RectangleLeft < sorted[j].RectangleLeft
	})

	multi := len(sorted) > 1
	messages := make([]domain.ReplyMessage, 0, len(sorted))
	for i, face := range sorted {
		messages = append(messages, domain.NewTextMessage(diagnosisText(face, i, multi)))
	}
	return messages
}

// diagnosisText renders one face into its reply line. The positional prefix
// only appears when the photo contained more than one face.
func diagnosisText(face domain.DetectedFace, index int, multi bool) string {
	label := genderLabel(face.Gender)
	score := beautyScore(face)

	if multi {
		return fmt.Sprintf("From the left, person %d: age %d, %s, beauty score %d out of 100",
			index+1, face.Age, label, score)
	}
	return fmt.Sprintf("Age %d, %s, beauty score %d out of 100", face.Age, label, score)
}

// genderLabel localizes the raw service value
func genderLabel(raw string) string {
	if raw == domain.GenderMale {
		return "male"
	}
	return "female"
}

// beautyScore picks the gender-matching score and rounds half-up.
// Scores are non-negative, so math.Round is half-up here.
func beautyScore(face domain.DetectedFace) int {
	score := face.BeautyFemale
	if face.Gender == domain.GenderMale {
		score = face.BeautyMale
	}
	return int(math.Round(score))
}
