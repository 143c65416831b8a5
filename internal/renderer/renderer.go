// Package renderer projects a content tree plus selection into HTML. The
// projection logic is the same whether it runs host-side or inside the
// isolated preview frame; only the surrounding page shell differs.
//
// Resolution failures are recovered locally: an unknown block type or an
// unavailable pattern renders as an inline placeholder naming the failed
// identifier, so one bad element never blocks the rest of the tree.
package renderer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/patterns"
	"github.com/conduitcms/composer/internal/registry"
	"github.com/conduitcms/composer/internal/types"
)

// TreeRenderer renders content trees against the block registry and pattern
// resolver.
type TreeRenderer struct {
	registry *registry.BlockRegistry
	resolver *patterns.Resolver
	logger   logging.Logger
}

// NewTreeRenderer creates a renderer.
func NewTreeRenderer(reg *registry.BlockRegistry, resolver *patterns.Resolver, logger logging.Logger) *TreeRenderer {
	return &TreeRenderer{
		registry: reg,
		resolver: resolver,
		logger:   logger.WithComponent("renderer"),
	}
}

// RenderTree renders the whole tree. selectedID marks the selected element
// wrapper, or nil for no selection.
func (r *TreeRenderer) RenderTree(ctx context.Context, tree types.ContentTree, selectedID *string) string {
	var buf strings.Builder
	buf.WriteString(`<div class="composer-canvas">`)

	for _, el := range tree {
		selected := selectedID != nil && *selectedID == el.ID()
		buf.WriteString(r.renderElement(ctx, el, selected))
	}

	if len(tree) == 0 {
		buf.WriteString(`<div class="composer-empty">No blocks yet</div>`)
	}

	buf.WriteString(`</div>`)
	return buf.String()
}

// renderElement renders one tree element inside its selectable wrapper.
func (r *TreeRenderer) renderElement(ctx context.Context, el types.Element, selected bool) string {
	wrapperClass := "composer-element"
	if selected {
		wrapperClass += " composer-element--selected"
	}

	var inner string
	switch {
	case el.Block != nil:
		inner = r.renderBlock(ctx, el.Block)
	case el.Pattern != nil:
		inner = r.renderPattern(ctx, el.Pattern)
	default:
		return ""
	}

	return fmt.Sprintf(`<div class="%s" data-element-id="%s">%s</div>`,
		wrapperClass, html.EscapeString(el.ID()), inner)
}

// renderBlock resolves the block type and renders it, or falls back to a
// named error placeholder carrying the unresolved identifier.
func (r *TreeRenderer) renderBlock(ctx context.Context, block *types.BlockInstance) string {
	def, ok := r.registry.Lookup(block.BlockType)
	if !ok {
		return unknownBlockPlaceholder(block.BlockType)
	}

	out, err := def.Render(ctx, block.Properties)
	if err != nil {
		r.logger.Warn(ctx, err, "block render failed",
			"block_type", block.BlockType, "block_id", block.ID)
		return fmt.Sprintf(
			`<div class="composer-placeholder composer-placeholder--error">Failed to render block &quot;%s&quot;</div>`,
			html.EscapeString(block.BlockType))
	}
	return out
}

// renderPattern resolves the reference and renders its blocks read-only.
// Only the reference itself is selectable; pattern contents carry no
// element wrappers. Resolution failure renders the distinct
// unavailable-pattern affordance, never an empty section.
func (r *TreeRenderer) renderPattern(ctx context.Context, ref *types.PatternReference) string {
	blocks, err := r.resolver.Resolve(ctx, ref.Ref)
	if err != nil {
		return patternUnavailablePlaceholder(ref.Ref)
	}

	var buf strings.Builder
	buf.WriteString(`<div class="composer-pattern" data-pattern-ref="` + html.EscapeString(ref.Ref) + `">`)
	for i := range blocks {
		buf.WriteString(r.renderBlock(ctx, &blocks[i]))
	}
	buf.WriteString(`</div>`)
	return buf.String()
}

func unknownBlockPlaceholder(blockType string) string {
	return fmt.Sprintf(
		`<div class="composer-placeholder composer-placeholder--unknown">Unknown block type &quot;%s&quot;</div>`,
		html.EscapeString(blockType))
}

func patternUnavailablePlaceholder(patternID string) string {
	return fmt.Sprintf(
		`<div class="composer-placeholder composer-placeholder--pattern-unavailable">Pattern &quot;%s&quot; is unavailable</div>`,
		html.EscapeString(patternID))
}
