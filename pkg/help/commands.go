package help

// Category groups commands in help output.
type Category string

const (
	// CategoryObserve reads daemon state: /status, /changes, /optimizations, /awareness
	CategoryObserve Category = "observe"

	// CategoryAct runs or inspects optimizations: /plans, /optimize
	CategoryAct Category = "act"

	// CategoryGeneral holds /help and /quit
	CategoryGeneral Category = "general"
)

// CategoryInfo provides display metadata for a command category.
type CategoryInfo struct {
	DisplayName string
	Icon        string
}

// CategoryOrder is the order categories appear in help output.
var CategoryOrder = []Category{
	CategoryObserve,
	CategoryAct,
	CategoryGeneral,
}

// Categories maps each Category to its display information.
var Categories = map[Category]CategoryInfo{
	CategoryObserve: {DisplayName: "Observe", Icon: "👁"},
	CategoryAct:     {DisplayName: "Optimize", Icon: "⚡"},
	CategoryGeneral: {DisplayName: "General", Icon: "ℹ"},
}

// DisplayName returns the human-readable display name for the category.
func (c Category) DisplayName() string {
	if info, ok := Categories[c]; ok {
		return info.DisplayName
	}
	return string(c)
}

// Icon returns the icon for the category.
func (c Category) Icon() string {
	if info, ok := Categories[c]; ok {
		return info.Icon
	}
	return ""
}

// Command is one console command with its help metadata.
type Command struct {
	// Name includes the leading slash, e.g. "/status".
	Name string

	// Shortcut is an optional alias, e.g. "/q".
	Shortcut string

	Category    Category
	Description string

	// Usage is the syntax line, e.g. "/changes [n]".
	Usage string

	Examples []Example
}

// Example is a concrete invocation of a command.
type Example struct {
	Command     string
	Description string
}

// Commands is the console command registry.
var Commands = []Command{
	{
		Name:        "/status",
		Category:    CategoryObserve,
		Description: "Engine state, budget and awareness level",
		Usage:       "/status",
	},
	{
		Name:        "/changes",
		Category:    CategoryObserve,
		Description: "Recent detected changes, newest first",
		Usage:       "/changes [n]",
		Examples: []Example{
			{Command: "/changes", Description: "Last 10 changes"},
			{Command: "/changes 50", Description: "Last 50 changes"},
		},
	},
	{
		Name:        "/optimizations",
		Category:    CategoryObserve,
		Description: "Recent optimization records",
		Usage:       "/optimizations [n]",
		Examples: []Example{
			{Command: "/optimizations 5", Description: "Last 5 runs with their steps"},
		},
	},
	{
		Name:        "/awareness",
		Category:    CategoryObserve,
		Description: "Latest self-knowledge snapshot",
		Usage:       "/awareness",
	},
	{
		Name:        "/plans",
		Category:    CategoryAct,
		Description: "Available optimization plans",
		Usage:       "/plans",
	},
	{
		Name:        "/optimize",
		Category:    CategoryAct,
		Description: "Force an optimization now",
		Usage:       "/optimize <type>",
		Examples: []Example{
			{Command: "/optimize memory_consolidation", Description: "Consolidate episodes outside the hourly budget"},
			{Command: "/optimize working_memory_cleanup", Description: "Trim working memory"},
		},
	},
	{
		Name:        "/help",
		Shortcut:    "/h",
		Category:    CategoryGeneral,
		Description: "Show this help, or details for one command",
		Usage:       "/help [command]",
		Examples: []Example{
			{Command: "/help optimize", Description: "Details for /optimize"},
		},
	},
	{
		Name:        "/quit",
		Shortcut:    "/q",
		Category:    CategoryGeneral,
		Description: "Leave the console",
		Usage:       "/quit",
	},
}

// GetCommandsByCategory returns all commands in a given category.
func GetCommandsByCategory(cat Category) []Command {
	var result []Command
	for _, cmd := range Commands {
		if cmd.Category == cat {
			result = append(result, cmd)
		}
	}
	return result
}

// GetCommand returns a command by name or shortcut, with or without the
// leading slash.
func GetCommand(name string) (Command, bool) {
	if len(name) > 0 && name[0] != '/' {
		name = "/" + name
	}
	for _, cmd := range Commands {
		if cmd.Name == name || cmd.Shortcut == name {
			return cmd, true
		}
	}
	return Command{}, false
}
