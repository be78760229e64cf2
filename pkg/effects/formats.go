package effects

// Format is a named output preset with fixed pixel dimensions
type Format struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Aspect string `json:"aspect"`
}

// Formats enumerates the supported export targets
var Formats = map[string]Format{
	"tiktok":    {Name: "tiktok", Width: 1080, Height: 1920, Aspect: "9:16"},
	"youtube":   {Name: "youtube", Width: 1920, Height: 1080, Aspect: "16:9"},
	"square":    {Name: "square", Width: 1080, Height: 1080, Aspect: "1:1"},
	"landscape": {Name: "landscape", Width: 1920, Height: 1080, Aspect: "16:9"},
}

// DefaultFormat is used when an unknown format name is requested
const DefaultFormat = "tiktok"

// LookupFormat resolves a format name, falling back to the default for
// unknown names rather than failing.
func LookupFormat(name string) Format {
	if f, ok := Formats[name]; ok {
		return f
	}
	return Formats[DefaultFormat]
}
