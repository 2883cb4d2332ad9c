package roomcode

var places = []string{
	"harbor", "meadow", "canyon", "lagoon", "summit", "orchard", "glacier", "prairie", "delta", "fjord",
	"atrium", "balcony", "cellar", "gazebo", "lighthouse", "library", "market", "pier", "plaza", "tower",
	"island", "valley", "reef", "dune", "grove", "marsh", "ridge", "cove", "bluff", "mesa",
}

var instruments = []string{
	"cello", "banjo", "flute", "oboe", "tuba", "harp", "lute", "piano", "sitar", "ukulele",
	"bongo", "cymbal", "fiddle", "kazoo", "marimba", "organ", "piccolo", "tabla", "trumpet", "zither",
	"bugle", "clarinet", "drum", "gong", "horn", "mandolin", "ocarina", "recorder", "tambourine", "viola",
}

var weather = []string{
	"breeze", "drizzle", "thunder", "rainbow", "frost", "monsoon", "mist", "sleet", "gale", "aurora",
	"sunrise", "dusk", "twilight", "cloud", "storm", "hail", "fog", "zephyr", "squall", "halo",
	"blizzard", "dew", "eclipse", "haze", "lightning", "solstice", "tempest", "tide", "whirl", "glow",
}

var colors = []string{
	"amber", "azure", "coral", "crimson", "indigo", "ivory", "jade", "lilac", "ochre", "scarlet",
	"teal", "umber", "violet", "cobalt", "saffron", "sepia", "russet", "mauve", "olive", "cyan",
	"golden", "silver", "copper", "bronze", "pearl", "ruby", "sable", "topaz", "onyx", "plum",
}

var moods = []string{
	"brave", "calm", "cheery", "cozy", "eager", "gentle", "jolly", "keen", "lively", "mellow",
	"merry", "nimble", "plucky", "quiet", "sunny", "swift", "tidy", "witty", "zesty", "bold",
	"breezy", "bright", "chipper", "daring", "dreamy", "fuzzy", "humble", "lucky", "proud", "snug",
}

var critters = []string{
	"otter", "heron", "lynx", "marten", "badger", "finch", "gecko", "ibis", "koala", "lemur",
	"mole", "newt", "ocelot", "panda", "quokka", "raven", "stoat", "tapir", "urchin", "vole",
	"walrus", "yak", "zebra", "bison", "crane", "dingo", "egret", "ferret", "gopher", "hare",
}
