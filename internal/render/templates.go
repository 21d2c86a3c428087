// Package render turns a post decision plus situation context into final
// feed-ready text.
//
// This file holds the phrasing pools. Every pool entry may reference the
// placeholders resolved in renderer.go; a placeholder with no city data
// resolves to generic wording, never to an empty string or a literal token.
package render

import "github.com/citypulse/pulsebot/internal/models"

// template is one phrasing option. Poll entries become poll posts.
type template struct {
	text string
	poll []string
}

type poolKey struct {
	postType models.PostType
	category models.TemplateCategory
}

// pools maps (post type, template category) to its phrasing options.
// Selection within a pool is uniform-random.
var pools = map[poolKey][]template{
	// Traffic.
	{models.PostTypeTraffic, models.CategorySevere}: {
		{text: "Avoid {road} if you can — traffic is at a standstill right now. Seriously, find another way."},
		{text: "{highway} is a parking lot. Whatever you're doing, it can wait."},
		{text: "PSA: {road} is completely jammed. Side streets aren't much better. Good luck out there."},
	},
	{models.PostTypeTraffic, models.CategoryHeavy}: {
		{text: "Heads up — {road} is backed up pretty bad right now. Give yourself extra time."},
		{text: "{highway} is crawling. If you're heading out, maybe wait 30 minutes."},
		{text: "Traffic on {road} is rough today. Anyone know what's going on near {landmark}?"},
	},
	{models.PostTypeTraffic, models.CategoryModerate}: {
		{text: "{road} is slower than usual this afternoon. Nothing crazy, just plan ahead."},
		{text: "Bit of a slowdown on {highway}. The usual spots near {landmark} are filling up."},
	},

	// Weather.
	{models.PostTypeWeather, models.CategoryStorm}: {
		{text: "Storms rolling through {city} — stay off the roads if you can and charge your phones."},
		{text: "That sky over {landmark} is looking angry. Storm's here, stay safe everyone."},
		{text: "Thunder already shaking the windows. Keep the pets inside tonight, {city}."},
	},
	{models.PostTypeWeather, models.CategoryCold}: {
		{text: "It's {temp}°F out there. Wrap your pipes, bring in the plants, and drive slow on the bridges."},
		{text: "Hard freeze tonight in {city} — {temp}°F. Check on your neighbors."},
	},
	{models.PostTypeWeather, models.CategoryHeat}: {
		{text: "{temp}°F in {city} today. Hydrate, stay in the shade, and don't leave anything alive in the car."},
		{text: "It is dangerously hot out — {temp}°F. The splash pad at {landmark} is about to be packed."},
	},
	{models.PostTypeWeather, models.CategoryClear}: {
		{text: "Absolutely perfect day in {city} — {temp}°F and clear. Get outside while it lasts."},
		{text: "{temp}°F and sunny. {landmark} is calling."},
	},

	// Events, in-radius.
	{models.PostTypeEvents, models.CategorySports}: {
		{text: "Game day! {event} at {venue} — expect traffic around there to get messy before kickoff."},
		{text: "Who's heading to {event} tonight? {venue} is going to be loud."},
	},
	{models.PostTypeEvents, models.CategoryConcert}: {
		{text: "{event} is at {venue} tonight. Parking fills up fast — carpool if you can."},
		{text: "Tonight: {event} at {venue}. Doors open early, get there ahead of the line."},
	},
	{models.PostTypeEvents, models.CategoryFestival}: {
		{text: "{event} is happening at {venue}! Bring sunscreen and cash for the food stalls."},
		{text: "Festival weekend — {event} kicks off at {venue}. Who's going?"},
	},
	{models.PostTypeEvents, models.CategoryComedy}: {
		{text: "Need a laugh? {event} is at {venue} tonight. Grab tickets before it sells out."},
	},
	{models.PostTypeEvents, models.CategoryArts}: {
		{text: "{event} opens at {venue} tonight. Heard great things about this one."},
	},
	{models.PostTypeEvents, models.CategoryFood}: {
		{text: "Foodies: {event} is on at {venue}. Come hungry."},
	},
	{models.PostTypeEvents, models.CategoryOther}: {
		{text: "Happening soon: {event} at {venue}. Something different for a change!"},
		{text: "{event} starts soon at {venue} — could be fun."},
	},

	// General.
	{models.PostTypeGeneral, models.CategoryLocal}: {
		{text: "Slow news day in {city}. Anyone found a new favorite spot lately?"},
		{text: "What's everyone's go-to around {landmark}? Looking for recommendations."},
		{text: "Quiet one out there today, {city}. Enjoy it."},
		{text: "Settle it once and for all, {city}: tacos or barbecue?", poll: []string{"Tacos", "Barbecue", "Why not both"}},
	},
}

// distantEventPool is used when the event sits outside the primary radius but
// inside the extended radius. These templates always state the distance.
var distantEventPool = []template{
	{text: "{event} is at {venue}, about {distance} miles out — worth the drive if you're free."},
	{text: "Road trip material: {event} at {venue}, roughly {distance} miles from {city}."},
}

// fallbackPool covers forced generation with no qualifying category.
var fallbackPool = []template{
	{text: "Hope everyone in {city} is having a good one. What's happening out there?"},
}

// moods maps (post type, category) to the post's mood emoji.
var moods = map[poolKey]string{
	{models.PostTypeTraffic, models.CategorySevere}:   "🚨",
	{models.PostTypeTraffic, models.CategoryHeavy}:    "🚗",
	{models.PostTypeTraffic, models.CategoryModerate}: "🚙",
	{models.PostTypeWeather, models.CategoryStorm}:    "⛈️",
	{models.PostTypeWeather, models.CategoryCold}:     "🥶",
	{models.PostTypeWeather, models.CategoryHeat}:     "🥵",
	{models.PostTypeWeather, models.CategoryClear}:    "☀️",
	{models.PostTypeEvents, models.CategorySports}:    "🏟️",
	{models.PostTypeEvents, models.CategoryConcert}:   "🎶",
	{models.PostTypeEvents, models.CategoryFestival}:  "🎪",
	{models.PostTypeEvents, models.CategoryComedy}:    "🎤",
	{models.PostTypeEvents, models.CategoryArts}:      "🎭",
	{models.PostTypeEvents, models.CategoryFood}:      "🌮",
	{models.PostTypeEvents, models.CategoryOther}:     "📅",
	{models.PostTypeGeneral, models.CategoryLocal}:    "😎",
}

// defaultMood covers combinations without a specific emoji.
const defaultMood = "📍"

// funFactLeadIns prefix an injected fun-fact sentence.
var funFactLeadIns = []string{"Fun fact:", "Did you know?", "Trivia:", "BTW:"}

// personas are the synthetic author name pools, keyed by post type so the
// author handle thematically matches the content.
var personas = map[models.PostType][]string{
	models.PostTypeTraffic: {"traffic_watch", "roadwise", "commute_scout", "lane_report"},
	models.PostTypeWeather: {"sky_check", "weather_eye", "storm_spotter", "forecast_fan"},
	models.PostTypeEvents:  {"scene_scout", "event_radar", "nightowl", "showgoer"},
	models.PostTypeGeneral: {"local_lens", "city_buzz", "neighborly", "porch_view"},
}
