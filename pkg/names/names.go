// Package names generates deterministic human-friendly names in
// adjective-noun form from arbitrary input parts. The same inputs always
// produce the same name.
package names

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// Generate derives an adjective-noun name from the given parts.
func Generate(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "/")))
	adj := adjectives[binary.BigEndian.Uint32(sum[0:4])%uint32(len(adjectives))]
	noun := nouns[binary.BigEndian.Uint32(sum[4:8])%uint32(len(nouns))]
	return adj + "-" + noun
}

var adjectives = []string{
	"able", "aged", "agile", "airy", "alert", "alive", "amber", "ample",
	"ancient", "apt", "arid", "awake", "azure", "balmy", "bare", "basic",
	"beaming", "bold", "bonny", "brave", "breezy", "brief", "bright", "brisk",
	"broad", "bronze", "busy", "calm", "candid", "canny", "casual", "cheery",
	"chief", "chilly", "civil", "classic", "clean", "clear", "clever", "close",
	"cloudy", "cobalt", "cool", "coral", "cosmic", "cozy", "crimson", "crisp",
	"curious", "daring", "dapper", "dawn", "deep", "deft", "dense", "direct",
	"divine", "dry", "dusky", "eager", "early", "earthy", "easy", "electric",
	"elegant", "emerald", "endless", "equal", "exact", "fair", "famous", "fancy",
	"fast", "fearless", "fertile", "fine", "firm", "fleet", "fluent", "fond",
	"formal", "frank", "free", "fresh", "frosty", "gallant", "gentle", "giant",
	"gifted", "glad", "golden", "graceful", "grand", "great", "green", "happy",
	"hardy", "hazel", "hearty", "hidden", "high", "honest", "humble", "icy",
	"ideal", "indigo", "inner", "ivory", "jade", "jolly", "keen", "kind",
	"large", "lasting", "lean", "light", "lively", "local", "loyal", "lucid",
	"lucky", "lunar", "magic", "main", "major", "mellow", "merry", "mighty",
	"mild", "misty", "modern", "modest", "mossy", "native", "neat", "noble",
	"novel", "olive", "open", "orange", "pacific", "patient", "peaceful", "plain",
	"pleasant", "polar", "polite", "posh", "prime", "proud", "pure", "quick",
	"quiet", "rapid", "rare", "ready", "regal", "rich", "robust", "rosy",
	"round", "royal", "ruby", "rustic", "sable", "sacred", "sage", "sandy",
	"scarlet", "secure", "serene", "sharp", "shiny", "silent", "silver", "sincere",
	"sleek", "smart", "smooth", "snowy", "solar", "solid", "sound", "spare",
	"spry", "stable", "starry", "steady", "stellar", "still", "stout", "strong",
	"sturdy", "subtle", "sunny", "superb", "swift", "tidy", "timely", "tranquil",
	"true", "trusty", "upbeat", "urban", "valiant", "vast", "velvet", "vernal",
	"violet", "vital", "vivid", "warm", "wealthy", "whole", "wild", "willing",
	"windy", "wise", "witty", "worthy", "young", "zesty",
}

var nouns = []string{
	"acorn", "alder", "anchor", "antler", "arch", "arrow", "aspen", "aster",
	"atlas", "aurora", "badger", "bay", "beacon", "bear", "beaver", "beech",
	"bell", "birch", "bison", "bloom", "bluff", "boulder", "bramble", "branch",
	"breeze", "bridge", "brook", "cactus", "canyon", "cape", "cardinal", "cave",
	"cedar", "cliff", "cloud", "clover", "comet", "compass", "condor", "coral",
	"cosmos", "cove", "coyote", "crane", "creek", "crest", "cricket", "crow",
	"current", "cyclone", "cypress", "dale", "dawn", "deer", "delta", "dew",
	"dove", "drift", "dune", "eagle", "echo", "eddy", "elk", "ember",
	"falcon", "fern", "field", "finch", "fir", "fjord", "flame", "flint",
	"fog", "forest", "fox", "frost", "galaxy", "gale", "garden", "gazelle",
	"geyser", "glacier", "glade", "glen", "gorge", "grove", "gull", "harbor",
	"hare", "hawk", "hazel", "heron", "hill", "hollow", "horizon", "ibis",
	"iris", "island", "ivy", "jaguar", "jasper", "jay", "juniper", "kestrel",
	"kite", "lagoon", "lake", "larch", "lark", "laurel", "leaf", "ledge",
	"lichen", "light", "lily", "lion", "lotus", "lynx", "maple", "marsh",
	"meadow", "mesa", "meteor", "mist", "moon", "moose", "moss", "moth",
	"mountain", "nebula", "nectar", "nest", "night", "oak", "oasis", "ocean",
	"orca", "orchid", "osprey", "otter", "owl", "oyster", "palm", "panther",
	"peak", "pebble", "pelican", "perch", "petal", "pine", "planet", "plateau",
	"plume", "pond", "poppy", "prairie", "puffin", "quail", "quartz", "quasar",
	"rain", "rapids", "raven", "reef", "ridge", "river", "robin", "rock",
	"rose", "sage", "salmon", "sand", "sea", "seal", "shadow", "shell",
	"shore", "sky", "slope", "snow", "sparrow", "spring", "spruce", "star",
	"stone", "storm", "stream", "summit", "sun", "surf", "swan", "thicket",
	"thistle", "thorn", "thunder", "tide", "tiger", "timber", "trail", "tree",
	"tundra", "vale", "valley", "vine", "violet", "wave", "whale", "willow",
	"wind", "wolf", "wren", "zephyr",
}
