// Package skills discovers the skill documents under evaluation and
// fingerprints their on-disk content so results can be attributed to the
// exact skill version that produced them. Skills are packaged as directories
// containing a SKILL.md file with YAML frontmatter.
package skills

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description from frontmatter
	Directory   string // Full path to the skill directory
	Content     string // Full content of SKILL.md (body, not frontmatter)
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
