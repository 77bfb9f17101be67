package generate

import "strings"

// Style categories.
const (
	CategoryAnimation  = "animation"
	CategoryLiveAction = "live-action"
	CategorySpecial    = "special"
)

// DefaultStyle is used when a project names no style or an unknown one.
const DefaultStyle = "cinematic"

// Style is a visual preset applied around every generated prompt.
type Style struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	ImagePrefix       string `json:"image_prefix"`
	ImageSuffix       string `json:"image_suffix"`
	VideoPrefix       string `json:"video_prefix"`
	VideoSuffix       string `json:"video_suffix"`
	CharacterTemplate string `json:"character_template"`
	NegativePrompt    string `json:"negative_prompt"`
}

const (
	baseNegative      = "blurry, low quality, watermark, text, signature, deformed hands, extra limbs"
	characterSentinel = "{character}"
)

var styles = []Style{
	// animation
	{
		ID: "anime", Name: "Anime", Category: CategoryAnimation,
		ImagePrefix: "anime style illustration", ImageSuffix: "cel shading, vibrant colors, detailed line art",
		VideoPrefix: "anime style animation", VideoSuffix: "smooth 2D animation, expressive motion",
		CharacterTemplate: "anime character design of {character}, clean line art, full color",
		NegativePrompt:    baseNegative + ", photorealistic, 3d render",
	},
	{
		ID: "hand-drawn", Name: "Hand-drawn Fantasy", Category: CategoryAnimation,
		ImagePrefix: "hand-drawn fantasy animation still", ImageSuffix: "soft watercolor backgrounds, warm natural light, whimsical",
		VideoPrefix: "hand-drawn fantasy animation", VideoSuffix: "gentle pacing, drifting wind and light",
		CharacterTemplate: "hand-drawn character sheet of {character}, soft colors, gentle expression",
		NegativePrompt:    baseNegative + ", photorealistic, harsh lighting",
	},
	{
		ID: "3d-animation", Name: "3D Animation", Category: CategoryAnimation,
		ImagePrefix: "3D animated feature film still", ImageSuffix: "subsurface scattering, stylized proportions, global illumination",
		VideoPrefix: "3D animated feature film shot", VideoSuffix: "fluid character animation, polished rendering",
		CharacterTemplate: "3D animated character model of {character}, stylized, appealing design",
		NegativePrompt:    baseNegative + ", flat, 2d, sketch",
	},
	{
		ID: "classic-cartoon", Name: "Classic Cartoon", Category: CategoryAnimation,
		ImagePrefix: "classic hand-inked cartoon frame", ImageSuffix: "bold outlines, flat saturated colors, painted backgrounds",
		VideoPrefix: "classic cartoon animation", VideoSuffix: "squash and stretch, snappy timing",
		CharacterTemplate: "classic cartoon model sheet of {character}, bold outlines",
		NegativePrompt:    baseNegative + ", photorealistic, gritty",
	},
	{
		ID: "watercolor", Name: "Watercolor", Category: CategoryAnimation,
		ImagePrefix: "watercolor animation frame", ImageSuffix: "soft bleeding edges, paper texture, pastel palette",
		VideoPrefix: "watercolor animated sequence", VideoSuffix: "painterly motion, flowing pigments",
		CharacterTemplate: "watercolor character study of {character}, loose brushwork",
		NegativePrompt:    baseNegative + ", hard edges, neon",
	},
	{
		ID: "claymation", Name: "Claymation", Category: CategoryAnimation,
		ImagePrefix: "stop-motion claymation still", ImageSuffix: "handmade clay textures, miniature set, tactile detail",
		VideoPrefix: "stop-motion claymation shot", VideoSuffix: "slightly stepped motion, handcrafted feel",
		CharacterTemplate: "clay puppet of {character}, fingerprint textures, miniature scale",
		NegativePrompt:    baseNegative + ", smooth cgi, photorealistic skin",
	},
	{
		ID: "comic", Name: "Comic Book", Category: CategoryAnimation,
		ImagePrefix: "comic book panel", ImageSuffix: "ink outlines, halftone shading, dynamic composition",
		VideoPrefix: "motion comic sequence", VideoSuffix: "panel-like framing, punchy camera moves",
		CharacterTemplate: "comic book character illustration of {character}, heroic pose",
		NegativePrompt:    baseNegative + ", photorealistic, soft focus",
	},
	{
		ID: "chibi", Name: "Chibi", Category: CategoryAnimation,
		ImagePrefix: "cute chibi illustration", ImageSuffix: "oversized heads, small bodies, candy colors",
		VideoPrefix: "cute chibi animation", VideoSuffix: "bouncy playful motion",
		CharacterTemplate: "chibi character of {character}, big eyes, tiny body",
		NegativePrompt:    baseNegative + ", realistic proportions, dark",
	},

	// live-action
	{
		ID: "cinematic", Name: "Cinematic", Category: CategoryLiveAction,
		ImagePrefix: "cinematic film still", ImageSuffix: "anamorphic lens, shallow depth of field, dramatic lighting, color graded",
		VideoPrefix: "cinematic film shot", VideoSuffix: "smooth camera movement, filmic motion blur, 24fps",
		CharacterTemplate: "cinematic portrait of {character}, realistic, detailed face",
		NegativePrompt:    baseNegative + ", cartoon, anime, illustration",
	},
	{
		ID: "film-noir", Name: "Film Noir", Category: CategoryLiveAction,
		ImagePrefix: "black and white film noir still", ImageSuffix: "hard shadows, venetian blind light, high contrast",
		VideoPrefix: "film noir sequence", VideoSuffix: "moody slow push-in, smoke and shadow",
		CharacterTemplate: "film noir portrait of {character}, high contrast black and white",
		NegativePrompt:    baseNegative + ", color, bright, cartoon",
	},
	{
		ID: "documentary", Name: "Documentary", Category: CategoryLiveAction,
		ImagePrefix: "documentary photograph", ImageSuffix: "natural light, candid framing, realistic detail",
		VideoPrefix: "handheld documentary footage", VideoSuffix: "natural handheld motion, observational",
		CharacterTemplate: "documentary portrait of {character}, candid, natural light",
		NegativePrompt:    baseNegative + ", stylized, fantasy, cartoon",
	},
	{
		ID: "vintage-film", Name: "Vintage Film", Category: CategoryLiveAction,
		ImagePrefix: "1970s 35mm film still", ImageSuffix: "film grain, faded warm colors, soft halation",
		VideoPrefix: "vintage 16mm film footage", VideoSuffix: "gate weave, grain, slightly faded",
		CharacterTemplate: "vintage film portrait of {character}, grainy 35mm",
		NegativePrompt:    baseNegative + ", digital sharpness, modern",
	},
	{
		ID: "cyberpunk", Name: "Cyberpunk", Category: CategoryLiveAction,
		ImagePrefix: "cyberpunk film still", ImageSuffix: "neon reflections, rain-soaked streets, teal and magenta",
		VideoPrefix: "cyberpunk film shot", VideoSuffix: "neon flicker, rain, slow tracking shot",
		CharacterTemplate: "cyberpunk character portrait of {character}, neon rim light, tech wear",
		NegativePrompt:    baseNegative + ", daylight pastoral, cartoon",
	},
	{
		ID: "western", Name: "Western", Category: CategoryLiveAction,
		ImagePrefix: "western film still", ImageSuffix: "dusty golden hour, wide desert vistas, warm tones",
		VideoPrefix: "western film shot", VideoSuffix: "slow dramatic pans, heat haze",
		CharacterTemplate: "western film portrait of {character}, weathered, sunlit",
		NegativePrompt:    baseNegative + ", neon, futuristic, cartoon",
	},
	{
		ID: "horror", Name: "Horror", Category: CategoryLiveAction,
		ImagePrefix: "horror film still", ImageSuffix: "low key lighting, desaturated, unsettling atmosphere",
		VideoPrefix: "horror film shot", VideoSuffix: "slow creeping camera, flickering light",
		CharacterTemplate: "horror film portrait of {character}, dim light, tense expression",
		NegativePrompt:    baseNegative + ", bright cheerful, cartoon",
	},

	// special
	{
		ID: "pixel-art", Name: "Pixel Art", Category: CategorySpecial,
		ImagePrefix: "16-bit pixel art scene", ImageSuffix: "limited palette, crisp pixels, retro game aesthetic",
		VideoPrefix: "pixel art animation", VideoSuffix: "sprite-like frame animation, retro",
		CharacterTemplate: "pixel art sprite of {character}, 16-bit, limited palette",
		NegativePrompt:    baseNegative + ", smooth gradients, photorealistic",
	},
	{
		ID: "low-poly", Name: "Low Poly", Category: CategorySpecial,
		ImagePrefix: "low poly 3D render", ImageSuffix: "faceted geometry, flat shading, minimal palette",
		VideoPrefix: "low poly 3D animation", VideoSuffix: "clean geometric motion",
		CharacterTemplate: "low poly 3D model of {character}, faceted, flat shaded",
		NegativePrompt:    baseNegative + ", photorealistic, high detail textures",
	},
	{
		ID: "oil-painting", Name: "Oil Painting", Category: CategorySpecial,
		ImagePrefix: "classical oil painting", ImageSuffix: "visible brushstrokes, rich impasto, chiaroscuro",
		VideoPrefix: "living oil painting", VideoSuffix: "brushstrokes shifting subtly with motion",
		CharacterTemplate: "oil painted portrait of {character}, classical composition",
		NegativePrompt:    baseNegative + ", photograph, flat vector",
	},
	{
		ID: "ukiyo-e", Name: "Ukiyo-e", Category: CategorySpecial,
		ImagePrefix: "ukiyo-e woodblock print", ImageSuffix: "flat color areas, bold outlines, washi paper texture",
		VideoPrefix: "animated ukiyo-e woodblock print", VideoSuffix: "layered parallax, flowing waves",
		CharacterTemplate: "ukiyo-e woodblock portrait of {character}, traditional style",
		NegativePrompt:    baseNegative + ", photorealistic, 3d render",
	},
	{
		ID: "sketch", Name: "Pencil Sketch", Category: CategorySpecial,
		ImagePrefix: "graphite pencil sketch", ImageSuffix: "cross-hatching, rough construction lines, paper grain",
		VideoPrefix: "animated pencil sketch", VideoSuffix: "boiling line animation, hand-drawn jitter",
		CharacterTemplate: "pencil sketch character study of {character}, expressive lines",
		NegativePrompt:    baseNegative + ", color, photorealistic",
	},
}

var stylesByID = func() map[string]Style {
	m := make(map[string]Style, len(styles))
	for _, s := range styles {
		m[s.ID] = s
	}
	return m
}()

// Styles returns every preset, grouped by category in display order.
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// Categories returns the style categories in display order.
func Categories() []string {
	return []string{CategoryAnimation, CategoryLiveAction, CategorySpecial}
}

// LookupStyle returns the preset for id, or the default preset.
func LookupStyle(id string) Style {
	if s, ok := stylesByID[strings.TrimSpace(id)]; ok {
		return s
	}
	return stylesByID[DefaultStyle]
}

// IsKnownStyle reports whether id names a preset.
func IsKnownStyle(id string) bool {
	_, ok := stylesByID[id]
	return ok
}
