package places

import "strings"

const iconBaseURL = "https://maps.gstatic.com/mapfiles/place_api/icons/v1/png_71/"

var defaultIcons = []struct {
	keyword string
	icon    string
}{
	{"restaurant", "restaurant-71.png"},
	{"cafe", "cafe-71.png"},
	{"museum", "museum-71.png"},
	{"church", "worship_general-71.png"},
	{"park", "park-71.png"},
	{"castle", "generic_business-71.png"},
	{"hotel", "lodging-71.png"},
	{"shopping", "shopping-71.png"},
	{"landmark", "generic_business-71.png"},
}

const fallbackIcon = "generic_business-71.png"

// DefaultPhoto guesses a category icon from keywords in query.
func DefaultPhoto(query string) string {
	q := strings.ToLower(query)
	for _, d := range defaultIcons {
		if strings.Contains(q, d.keyword) {
			return iconBaseURL + d.icon
		}
	}
	return iconBaseURL + fallbackIcon
}
