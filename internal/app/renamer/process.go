package renamer

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/extract"
	"github.com/renami-app/renami/internal/infra/observability"
	"github.com/renami-app/renami/internal/settings"
)

// processFile resolves the active provider once and records it on the
// result, whatever the outcome.
func (r *Renamer) processFile(ctx context.Context, path string) domain.RenameResult {
	cfg, cfgErr := settings.ActiveProvider(r.settings)
	res := r.processWith(ctx, path, cfg, cfgErr)
	res.Provider, res.Model = cfg.ID, cfg.Model
	return res
}

// processWith drives one file through the state machine.
func (r *Renamer) processWith(ctx context.Context, path string, cfg domain.ProviderConfig, cfgErr error) domain.RenameResult {
	if err := r.preflight(path, cfg, cfgErr); err != nil {
		return failed(path, domain.StagePreflight, sentence(err.Error()))
	}

	// Extracting
	ext := filepath.Ext(path)
	var ex domain.Extraction
	if r.plainText[lower(ext)] {
		ex = extract.ReadPlainText(r.fs, path)
	} else {
		ex = r.extractor.Extract(ctx, path)
	}
	observability.ExtractionResults.WithLabelValues(ex.Kind.String()).Inc()
	desc := r.describeImage(ctx, path, cfg)
	if ex.Kind == domain.ExtractFailed && desc == "" {
		return failed(path, domain.StageExtracting, ex.Reason)
	}
	content := ex.PromptContent()
	if desc != "" {
		content = withDescription(ex, desc)
	}

	// Suggesting
	prefs := settings.Preferences(r.settings)
	var (
		suggestion string
		err        error
	)
	if ps, ok := r.suggester.(domain.PinnedSuggester); ok {
		suggestion, err = ps.SuggestWith(ctx, cfg, content, ext, prefs)
	} else {
		suggestion, err = r.suggester.GetSuggestion(ctx, content, ext, prefs)
	}
	if err != nil {
		return failed(path, domain.StageSuggesting, domain.UserMessage(err))
	}

	// Renaming
	base, err := FinalBase(suggestion, ext)
	if err != nil {
		return failed(path, domain.StageRenaming, "Failed to rename file: "+err.Error())
	}
	dest, err := ResolveDestination(r.fs, path, base, ext)
	if err != nil {
		return failed(path, domain.StageRenaming, "Failed to rename file: "+err.Error())
	}
	if dest != path {
		if err := r.fs.Rename(path, dest); err != nil {
			return failed(path, domain.StageRenaming, "Failed to rename file: "+err.Error())
		}
	}

	return domain.RenameResult{
		OriginalPath: path,
		FinalPath:    dest,
		Success:      true,
		Message:      "Successfully renamed to " + filepath.Base(dest),
		Stage:        domain.StageSucceeded,
	}
}

// describeImage returns the provider's description of an image, or "" when
// path is not an image, no describer is set, or describing fails.
func (r *Renamer) describeImage(ctx context.Context, path string, cfg domain.ProviderConfig) string {
	r.mu.RLock()
	d := r.describer
	r.mu.RUnlock()
	ext := lower(filepath.Ext(path))
	if d == nil || !r.images[ext] {
		return ""
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		return ""
	}
	if info.Size() > r.config.MaxImageBytes {
		log.Printf("[renamer] %s: %d bytes, too large to describe", path, info.Size())
		return ""
	}
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		log.Printf("[renamer] read %s for description: %v", path, err)
		return ""
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	desc, err := d.DescribeImage(ctx, cfg, data, mimeType)
	if err != nil {
		observability.ExtractionResults.WithLabelValues("describe_failed").Inc()
		log.Printf("[renamer] describe %s: %s", path, domain.UserMessage(err))
		return ""
	}
	observability.ExtractionResults.WithLabelValues("described").Inc()
	return strings.TrimSpace(desc)
}

// withDescription appends an image description to the extracted content.
func withDescription(ex domain.Extraction, desc string) string {
	if ex.Kind != domain.ExtractOK || strings.TrimSpace(ex.Content) == "" {
		return imageDescriptionHeader + desc
	}
	return ex.Content + "\n\n" + imageDescriptionHeader + desc
}

const imageDescriptionHeader = "# Description:\n"

// preflight checks existence, file type and credentials before any work.
func (r *Renamer) preflight(path string, cfg domain.ProviderConfig, cfgErr error) error {
	info, err := r.fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	ext := lower(filepath.Ext(path))
	if !r.supported[ext] {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
	if cfgErr != nil {
		return cfgErr
	}
	if !cfg.HasCredentials() {
		return domain.ErrMissingAPIKey
	}
	return nil
}

func failed(path string, stage domain.Stage, msg string) domain.RenameResult {
	return domain.RenameResult{
		OriginalPath: path,
		Success:      false,
		Message:      msg,
		Stage:        stage,
	}
}

// sentence upper-cases the first letter of msg.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func lower(s string) string { return strings.ToLower(s) }
