package ignore

// DefaultIgnorePatterns are names and globs never listed or indexed.
// Bare names match any path component; globs match the base name.
// Anything else is opt-in through custom patterns or .indexignore.
var DefaultIgnorePatterns = []string{
	// Version control, still skipped when hidden entries are shown
	".git",
	".svn",
	".hg",

	// Office lock files
	"~$*",
	".~lock.*#",
}
