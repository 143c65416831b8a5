package renderer

import (
	"context"
	"fmt"
	"html"

	"github.com/conduitcms/composer/internal/types"
)

// RenderPage wraps a rendered tree in the host-side preview page shell.
func (r *TreeRenderer) RenderPage(ctx context.Context, title string, tree types.ContentTree, selectedID *string) string {
	body := r.RenderTree(ctx, tree, selectedID)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%s - Composer Preview</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 16px; background: #f5f5f5; }
        .composer-canvas { max-width: 960px; margin: 0 auto; background: white; border-radius: 8px; padding: 16px; }
        .composer-element { position: relative; border: 2px solid transparent; border-radius: 4px; margin-bottom: 8px; }
        .composer-element--selected { border-color: #007acc; }
        .composer-pattern { opacity: 0.95; pointer-events: none; }
        .composer-empty { color: #999; text-align: center; padding: 48px 0; }
        .composer-placeholder { border: 1px dashed #ccc; border-radius: 4px; padding: 16px; color: #666; font-size: 14px; }
        .composer-placeholder--unknown { border-color: #feca57; background: #fffbeb; }
        .composer-placeholder--pattern-unavailable { border-color: #ff6b6b; background: #fff5f5; }
        .composer-placeholder--error { border-color: #ff6b6b; background: #fff5f5; }
    </style>
</head>
<body>
%s
</body>
</html>`, html.EscapeString(title), body)
}

// FramePage is the isolated preview-frame page. It opens a websocket back
// to the host, renders full-state pushes, reports its content height and
// click/affordance interactions, and announces itself with READY once
// loaded. Both contexts exchange only plain serialized messages.
func FramePage() string {
	return `<!DOCTYPE html>
<html>
<head>
    <title>Composer Frame Preview</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 8px; background: white; }
        body.dark { background: #1a202c; color: #e2e8f0; }
        .composer-element { border: 2px solid transparent; border-radius: 4px; margin-bottom: 8px; }
        .composer-element--selected { border-color: #007acc; }
        .composer-toolbar { display: none; gap: 4px; position: absolute; top: 2px; right: 2px; }
        .composer-element:hover .composer-toolbar { display: flex; }
        .composer-toolbar button { font-size: 11px; }
        .composer-placeholder { border: 1px dashed #ccc; border-radius: 4px; padding: 16px; color: #666; }
        .composer-placeholder--pattern-unavailable { border-color: #ff6b6b; background: #fff5f5; }
    </style>
</head>
<body>
    <div id="root"></div>
    <script>
        const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
        const ws = new WebSocket(protocol + '//' + window.location.host + '/ws/frame');
        const root = document.getElementById('root');
        let selectedId = null;

        ws.onopen = function() {
            send({ type: 'READY' });
        };

        ws.onmessage = function(event) {
            const message = JSON.parse(event.data);
            switch (message.type) {
                case 'UPDATE_BLOCKS':
                    selectedId = message.selectedBlockId || null;
                    fetch('/api/preview/fragment', {
                        method: 'POST',
                        headers: { 'Content-Type': 'application/json' },
                        body: JSON.stringify({ blocks: message.blocks || [], selectedBlockId: selectedId })
                    }).then(r => r.text()).then(htmlText => {
                        root.innerHTML = htmlText;
                        attachHandlers();
                        reportHeight();
                    });
                    break;
                case 'UPDATE_SELECTION':
                    selectedId = message.selectedBlockId || null;
                    document.querySelectorAll('.composer-element').forEach(el => {
                        el.classList.toggle('composer-element--selected',
                            el.dataset.elementId === selectedId);
                    });
                    break;
                case 'UPDATE_THEME':
                    document.body.classList.toggle('dark', !!message.isDark);
                    break;
            }
        };

        function send(msg) {
            if (ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(msg));
            }
        }

        function attachHandlers() {
            document.querySelectorAll('.composer-element').forEach(el => {
                el.addEventListener('click', function(e) {
                    e.stopPropagation();
                    send({ type: 'BLOCK_CLICKED', blockId: el.dataset.elementId });
                });
                const toolbar = document.createElement('div');
                toolbar.className = 'composer-toolbar';
                [['↑', 'BLOCK_MOVE_UP'], ['↓', 'BLOCK_MOVE_DOWN'],
                 ['⧉', 'BLOCK_DUPLICATE'], ['✕', 'BLOCK_REMOVE']].forEach(([label, type]) => {
                    const btn = document.createElement('button');
                    btn.textContent = label;
                    btn.addEventListener('click', function(e) {
                        e.stopPropagation();
                        send({ type: type, blockId: el.dataset.elementId });
                    });
                    toolbar.appendChild(btn);
                });
                el.appendChild(toolbar);
            });
        }

        function reportHeight() {
            send({ type: 'CONTENT_HEIGHT', height: document.body.scrollHeight });
        }

        new ResizeObserver(reportHeight).observe(document.body);
    </script>
</body>
</html>`
}
