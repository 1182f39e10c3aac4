package controllers

import (
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/podwave/podwave-backend/utils"
)

// deleteStoredAudio removes the audio object when it lives in our Supabase
// bucket. Audio hosted elsewhere (AI service files) is left alone.
func deleteStoredAudio(audioURL string) error {
	if !strings.Contains(audioURL, "/storage/v1/object/") {
		return nil
	}
	return utils.DeleteFileFromSupabase(audioURL)
}

func logDeleteFailure(id uuid.UUID, err error) {
	log.Printf("cannot delete audio for podcast=%s: %v", id, err)
}
