package toolkit

import (
	"fmt"
	"strings"
)

// Canned forecast pools, keyed by what the request mentions. One entry is
// picked at random so repeated sessions read naturally.
var (
	dateForecasts = map[string][]string{
		"june 30": {
			"June 30th forecast: sunny and warm, 78°F (26°C). Light breeze, 10% chance of rain. Excellent conditions for outdoor activities.",
			"June 30th forecast: partly cloudy, 75°F (24°C). Comfortable humidity, no rain expected. Great day for an event.",
		},
		"july 4": {
			"July 4th forecast: clear skies, 82°F (28°C). Perfect fireworks weather, light evening breeze.",
			"July 4th forecast: hot and sunny, 88°F (31°C). Stay hydrated; shade recommended for afternoon events.",
		},
		"december 25": {
			"December 25th forecast: cold and clear, 35°F (2°C). Possible light snow in the evening. Indoor events recommended.",
			"December 25th forecast: overcast, 40°F (4°C). Chilly but dry. Bundle up for any outdoor time.",
		},
	}

	outdoorForecasts = []string{
		"Outdoor event forecast: mostly sunny, 76°F (24°C). Low wind, minimal rain risk. Ideal conditions.",
		"Outdoor event forecast: partly cloudy, 72°F (22°C). Slight chance of afternoon showers; have a backup plan.",
		"Outdoor event forecast: warm and humid, 84°F (29°C). Provide shade and plenty of water for guests.",
	}

	homeForecasts = []string{
		"Home event weather: pleasant conditions expected, 74°F (23°C). Good for opening windows or using the backyard.",
		"Home event weather: mild, 70°F (21°C). Indoor/outdoor flow works well; no weather concerns.",
	}

	generalForecasts = []string{
		"Weather outlook: seasonable temperatures with no significant weather systems expected.",
		"Weather outlook: generally fair conditions; check again closer to the event date for updates.",
	}
)

func (tk *Toolkit) weather(query string) string {
	q := strings.ToLower(query)

	for date, pool := range dateForecasts {
		if strings.Contains(q, date) {
			return tk.pick(pool)
		}
	}
	if strings.Contains(q, "outdoor") || containsAny(q, "park", "garden", "beach", "picnic") {
		return tk.pick(outdoorForecasts)
	}
	if strings.Contains(q, "home") {
		return tk.pick(homeForecasts)
	}
	return fmt.Sprintf("%s (Query: %s)", tk.pick(generalForecasts), query)
}

func (tk *Toolkit) pick(pool []string) string {
	return pool[tk.rng.Intn(len(pool))]
}
