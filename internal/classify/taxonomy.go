package classify

// SkillSlugs is the closed OASF skill vocabulary the stub classifier
// scores against and the MCP skills-taxonomy resource lists verbatim.
var SkillSlugs = []string{
	"data-analysis",
	"code-generation",
	"customer-support",
	"content-creation",
	"trading",
	"defi",
	"nft",
	"infrastructure",
	"general-purpose",
}

// DomainSlugs is the closed OASF domain vocabulary — the higher-level
// industry/use-case groupings a skill set rolls up into.
var DomainSlugs = []string{
	"finance",
	"gaming",
	"social",
	"research",
	"developer-tools",
	"creative",
}
