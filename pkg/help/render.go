package help

import (
	"fmt"
	"strings"
)

const (
	// commandColumnWidth fits the longest name plus its alias.
	commandColumnWidth = 20

	indentCategory = "  "
	indentCommand  = "    "
	indentExample  = "      "

	maxInlineExamples = 2
)

// RenderFull renders every category followed by the tips section.
func (r *Renderer) RenderFull() {
	r.writeln("")
	r.writeln(Header(indentCategory + "Nexus Console Commands"))
	r.writeln("")
	for _, cat := range CategoryOrder {
		r.renderCategory(cat)
	}
	r.RenderTips()
}

// RenderCommand renders usage and examples for one command. It returns
// false if the command is unknown.
func (r *Renderer) RenderCommand(name string) bool {
	cmd, found := GetCommand(name)
	if !found {
		r.writeln(fmt.Sprintf(indentCategory+"Command '%s' not found. Use /help to see all commands.", name))
		return false
	}

	r.writeln("")
	r.writeln(indentCategory + CommandWithShortcut(cmd.Name, cmd.Shortcut))
	r.writeln(indentCategory + Dim(cmd.Description))
	r.writeln("")
	r.writeln(indentCategory + Bold("Usage:") + " " + HighlightExample(cmd.Usage))
	if len(cmd.Examples) > 0 {
		r.writeln("")
		r.writeln(indentCategory + Bold("Examples:"))
		for _, ex := range cmd.Examples {
			r.writeln(indentCommand + HighlightExample(ex.Command) + Dim(" -> "+ex.Description))
		}
	}
	r.writeln("")
	return true
}

// RenderTips renders aliases and key bindings.
func (r *Renderer) RenderTips() {
	r.writeln(indentCategory + StyleCategory("Tips"))
	r.writeln(indentCategory + Dim(BoxTeeLeft+strings.Repeat(BoxHorizontal, commandColumnWidth+20)))
	r.writeln(indentCommand + Dim(BoxVertical+" ") + Dim("Aliases: ") +
		Shortcut("/h") + Dim("→help  ") +
		Shortcut("/q") + Dim("→quit  ") +
		Shortcut("/exit") + Dim("→quit"))
	r.writeln(indentCommand + Dim(BoxVertical+" ") + Dim("Keys:    ") +
		Shortcut("Tab") + Dim(" complete  ") +
		Shortcut("Ctrl+D") + Dim(" exit  ") +
		Shortcut("↑↓") + Dim(" history"))
	r.writeln("")
}

func (r *Renderer) renderCategory(cat Category) {
	commands := GetCommandsByCategory(cat)
	if len(commands) == 0 {
		return
	}

	r.writeln(indentCategory + StyleCategory(cat.Icon()+" "+cat.DisplayName()))
	r.writeln(indentCategory + Dim(BoxTeeLeft+strings.Repeat(BoxHorizontal, commandColumnWidth+20)))
	for _, cmd := range commands {
		name := PadRight(CommandWithShortcut(cmd.Name, cmd.Shortcut), commandColumnWidth)
		r.writeln(indentCommand + Dim(BoxVertical+" ") + name + Dim(cmd.Description))
		for i := 0; i < len(cmd.Examples) && i < maxInlineExamples; i++ {
			r.writeln(indentExample + Dim(BoxVertical+"   e.g. ") + HighlightExample(cmd.Examples[i].Command))
		}
	}
	r.writeln("")
}

func (r *Renderer) writeln(s string) {
	fmt.Fprintln(r.w, s)
}
