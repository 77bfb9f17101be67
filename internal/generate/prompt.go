package generate

import (
	"strings"

	"github.com/frameforge/frameforge-agent/internal/studio"
)

// joinParts drops blank fields and joins the rest in order.
func joinParts(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func labeled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + strings.TrimSpace(value)
}

func wrapImage(s Style, body string) string {
	return joinParts(", ", s.ImagePrefix, body, s.ImageSuffix)
}

func wrapVideo(s Style, body string) string {
	return joinParts(", ", s.VideoPrefix, body, s.VideoSuffix)
}

func characterSubject(c *studio.Character) string {
	return joinParts(", ", c.Name, c.Description, c.Appearance)
}

// CharacterPrompt is the avatar prompt for c.
func CharacterPrompt(s Style, c *studio.Character) string {
	subject := strings.ReplaceAll(s.CharacterTemplate, characterSentinel, characterSubject(c))
	return joinParts(", ", subject, "head and shoulders portrait, facing camera, plain background", s.ImageSuffix)
}

// CharacterViewPrompt is the prompt for one view of a turnaround sheet.
func CharacterViewPrompt(s Style, c *studio.Character, view string) string {
	subject := strings.ReplaceAll(s.CharacterTemplate, characterSentinel, characterSubject(c))
	return joinParts(", ", subject, "full body, "+view+" view, neutral pose, plain white background", s.ImageSuffix)
}

// ScenePrompt describes an establishing image of the scene with no people.
func ScenePrompt(s Style, sc *studio.Scene) string {
	body := joinParts(", ",
		sc.Location,
		sc.TimeOfDay,
		labeled("props", sc.Props),
		sc.Description,
		"establishing shot, no people",
	)
	return wrapImage(s, body)
}

// ShotPrompt describes a storyboard frame. Characters are listed in the
// order the shot references them.
func ShotPrompt(s Style, sh *studio.Shot, sc *studio.Scene, chars []*studio.Character) string {
	var setting string
	if sc != nil {
		setting = joinParts(", ", sc.Location, sc.TimeOfDay, labeled("props", sc.Props))
	}

	cast := make([]string, 0, len(chars))
	for _, c := range chars {
		cast = append(cast, joinParts(" ", c.Name, paren(c.Appearance)))
	}

	body := joinParts(". ",
		sh.Description,
		sh.Action,
		labeled("setting", setting),
		labeled("characters", strings.Join(cast, "; ")),
		labeled("camera", sh.CameraType),
		labeled("mood", sh.Mood),
	)
	return wrapImage(s, body)
}

// VideoPrompt describes the motion for an image-to-video shot.
func VideoPrompt(s Style, sh *studio.Shot) string {
	body := joinParts(". ",
		sh.Description,
		sh.Action,
		labeled("camera", sh.CameraType),
		labeled("mood", sh.Mood),
	)
	return wrapVideo(s, body)
}

// AppearancePrompt asks the text model for a visual description.
func AppearancePrompt(c *studio.Character) (system, prompt string) {
	system = "You are a character designer for a film production. " +
		"Describe only visible physical appearance in one dense paragraph under 80 words: " +
		"age, build, face, hair, clothing, colors and distinguishing marks. No backstory, no markdown."
	prompt = joinParts("\n", labeled("Name", c.Name), labeled("Description", c.Description))
	return system, prompt
}

func paren(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}
