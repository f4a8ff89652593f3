package llm

import (
	"fmt"
	"strings"

	"github.com/renami-app/renami/internal/domain"
)

const verifyPrompt = "Hi"

// BuildSystemPrompt returns the naming instructions for prefs.
func BuildSystemPrompt(prefs domain.NamingPreferences) string {
	lang := prefs.EffectiveLanguage()
	convention := prefs.EffectiveConvention()

	var b strings.Builder
	b.WriteString("You are an assistant that names files after their content.\n")
	b.WriteString("Follow these rules when you suggest a file name:\n")
	b.WriteString("1. Reply with the file name only. No quotes, no explanation, no surrounding text.\n")
	b.WriteString("2. Do not include a file extension; it is added automatically.\n")
	b.WriteString("3. The content was extracted from the file and has lost its layout and hierarchy. " +
		"Consider all of it, not only the beginning.\n")
	fmt.Fprintf(&b, "4. Write the file name in %s.\n", lang.DisplayName())
	fmt.Fprintf(&b, "5. Naming convention: %s\n", convention.Rule())
	if instr := strings.TrimSpace(prefs.CustomInstruction); instr != "" {
		fmt.Fprintf(&b, "6. Additional instruction from the user: %s\n", instr)
	}
	return b.String()
}

// BuildUserPrompt returns the request carrying the extension and content.
func BuildUserPrompt(content, ext string) string {
	return fmt.Sprintf("Suggest a new file name based on the following information.\n"+
		"File extension: %s\n"+
		"File content:\n%s", ext, content)
}

const describePrompt = "Describe this image in a few sentences so that it can be given a " +
	"descriptive file name. Mention the subject, any visible text and what kind of image it is " +
	"(photo, screenshot, scan, diagram). Reply with the description only."

// truncateRunes caps s at max runes; max <= 0 disables the cap.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
