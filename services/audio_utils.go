package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	tcmp3 "github.com/tcolgate/mp3"
)

// MP3Duration sums frame durations of an MP3 stream, in seconds.
func MP3Duration(r io.Reader) (float64, error) {
	decoder := tcmp3.NewDecoder(r)
	var frame tcmp3.Frame
	var skipped int

	total := 0.0
	decoded := false
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			if !decoded {
				return 0, fmt.Errorf("cannot decode mp3 stream: %w", err)
			}
			// Tolerate trailing garbage after valid frames.
			break
		}
		decoded = true
		total += frame.Duration().Seconds()
	}
	return total, nil
}

// MP3DurationFromBytes measures the duration of in-memory MP3 data.
func MP3DurationFromBytes(data []byte) (float64, error) {
	return MP3Duration(bytes.NewReader(data))
}

// MP3DurationFromURL downloads an MP3 and measures its duration. Used as a
// fallback when the TTS response does not report one.
func MP3DurationFromURL(url string) (float64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("cannot fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("cannot fetch audio: status %d", resp.StatusCode)
	}
	return MP3Duration(resp.Body)
}
