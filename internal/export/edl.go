package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/frameforge/frameforge-agent/internal/studio"
)

const DefaultFrameRate = 24.0

// Timeline turns the storyboard into clips. Shots are taken in sequence
// order; shots without a rendered video are returned as skipped.
func Timeline(shots []*studio.Shot) (clips []Clip, skipped []string) {
	skipped = []string{}
	for _, sh := range shots {
		if sh.VideoPath == "" {
			skipped = append(skipped, sh.ID)
			continue
		}
		duration := sh.DurationMs
		if duration <= 0 {
			duration = studio.DefaultShotMs
		}
		clips = append(clips, Clip{
			Name:      SanitizeName(fmt.Sprintf("Shot %03d", sh.Sequence), 160),
			MediaPath: sh.VideoPath,
			StartMs:   0,
			EndMs:     duration,
			ShotID:    sh.ID,
		})
	}
	return clips, skipped
}

// GenerateEDL renders clips back to back as a CMX3600 style edit list.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	record := 0
	for i, c := range clips {
		length := c.EndMs - c.StartMs
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n", i+1, "AX", "V",
			msToTimecode(c.StartMs, fps), msToTimecode(c.EndMs, fps),
			msToTimecode(record, fps), msToTimecode(record+length, fps))
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", c.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", c.MediaPath)
		record += length
	}
	return b.String()
}

// TotalMs is the record length of clips laid back to back.
func TotalMs(clips []Clip) int {
	total := 0
	for _, c := range clips {
		total += c.EndMs - c.StartMs
	}
	return total
}

func isDropFrame(rate float64) bool {
	return math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01
}

func msToTimecode(ms int, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	seconds := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60, frames%fps)
}
