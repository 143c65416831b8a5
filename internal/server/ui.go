package server

// editorHTML is the host-side editor page: block palette, canvas preview,
// property form, and the fixed-width frame for viewport-accurate preview.
const editorHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Composer - Page Editor</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #f5f5f5; }
        .layout { display: grid; grid-template-columns: 220px 1fr 340px; gap: 12px; padding: 12px; height: calc(100vh - 24px); }
        .panel { background: white; border-radius: 8px; padding: 12px; overflow: auto; }
        .panel h2 { font-size: 14px; margin: 0 0 8px; color: #333; }
        .palette button { display: block; width: 100%; margin-bottom: 6px; padding: 8px; border: 1px solid #ddd; border-radius: 4px; background: #fafafa; cursor: pointer; text-align: left; }
        .palette button:hover { border-color: #007acc; }
        #canvas iframe { width: 100%; border: 1px solid #ddd; border-radius: 4px; }
        #frame-preview { width: 390px; border: 1px solid #ddd; border-radius: 4px; margin: 0 auto; display: block; }
        .toolbar { display: flex; gap: 8px; margin-bottom: 8px; }
        .toolbar input { flex: 1; padding: 6px; border: 1px solid #ddd; border-radius: 4px; }
        .toolbar button { padding: 6px 16px; border: none; border-radius: 4px; background: #007acc; color: white; cursor: pointer; }
        .dirty { color: #b7791f; font-size: 12px; }
        #properties .group { border: 1px solid #eee; border-radius: 4px; margin-bottom: 8px; }
        #properties .group-header { padding: 6px 8px; background: #fafafa; cursor: pointer; font-weight: 600; font-size: 13px; }
        #properties .field { margin: 8px; }
        #properties label { display: block; font-size: 12px; color: #555; margin-bottom: 2px; }
        #properties input, #properties textarea, #properties select { width: 100%; padding: 6px; border: 1px solid #ddd; border-radius: 4px; box-sizing: border-box; }
    </style>
</head>
<body>
    <div class="layout">
        <div class="panel palette">
            <h2>Blocks</h2>
            <div id="block-list"></div>
            <h2>Page</h2>
            <div class="toolbar" style="flex-direction: column;">
                <input id="title" placeholder="Title">
                <input id="slug" placeholder="Slug">
                <button id="save">Save</button>
                <span id="dirty" class="dirty"></span>
            </div>
        </div>
        <div class="panel" id="canvas">
            <h2>Preview <button id="toggle-frame">Mobile frame</button></h2>
            <iframe id="host-preview" src="/api/preview" height="600"></iframe>
            <iframe id="frame-preview" src="/frame" height="600" style="display:none"></iframe>
        </div>
        <div class="panel">
            <h2>Properties</h2>
            <div id="properties"></div>
        </div>
    </div>
    <script>
        const DEBOUNCE_MS = 500;
        let selectedId = null;
        let schemaByType = {};
        let pendingTimer = null;
        let pendingFor = null;
        let localValues = {};

        function command(body) {
            return fetch('/api/commands', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(body)
            }).then(r => r.json()).then(res => {
                refreshPreview();
                markDirty(res.data && res.data.dirty);
                return res;
            });
        }

        function refreshPreview() {
            document.getElementById('host-preview').contentWindow.location.reload();
        }

        function markDirty(dirty) {
            document.getElementById('dirty').textContent = dirty ? 'unsaved changes' : '';
        }

        function loadBlocks() {
            fetch('/api/blocks').then(r => r.json()).then(res => {
                const list = document.getElementById('block-list');
                list.innerHTML = '';
                (res.data || []).forEach(block => {
                    schemaByType[block.type] = block.fields || [];
                    const btn = document.createElement('button');
                    btn.textContent = block.name;
                    btn.addEventListener('click', () => {
                        command({ command: 'addBlock', blockType: block.type, afterId: selectedId || '' })
                            .then(res => selectElement(res.data.newId));
                    });
                    list.appendChild(btn);
                });
            });
        }

        function selectElement(id) {
            // Switching selection discards any pending debounced edit for
            // the previously selected element.
            if (pendingTimer) { clearTimeout(pendingTimer); pendingTimer = null; pendingFor = null; }
            selectedId = id;
            command({ command: 'select', id: id }).then(renderForm);
        }

        function schedulePropagation(elementId) {
            if (pendingTimer) clearTimeout(pendingTimer);
            pendingFor = elementId;
            pendingTimer = setTimeout(() => {
                if (pendingFor !== elementId) return;
                pendingTimer = null;
                command({ command: 'updateProperties', id: elementId, properties: localValues });
            }, DEBOUNCE_MS);
        }

        function renderForm() {
            fetch('/api/draft').then(r => r.json()).then(res => {
                const data = res.data || {};
                const blocks = (data.draft && data.draft.blocks) || [];
                const el = blocks.find(b => b.id === selectedId);
                const container = document.getElementById('properties');
                container.innerHTML = '';
                if (!el || el.kind === 'pattern') return;

                localValues = Object.assign({}, el.properties || {});
                (schemaByType[el.blockType] || []).forEach(field => {
                    const wrap = document.createElement('div');
                    wrap.className = 'field';
                    const label = document.createElement('label');
                    label.textContent = field.label || field.name;
                    const input = document.createElement(field.type === 'textarea' || field.type === 'richtext' ? 'textarea' : 'input');
                    if (input.tagName === 'INPUT') {
                        input.type = field.type === 'number' ? 'number'
                            : field.type === 'toggle' ? 'checkbox'
                            : field.type === 'color' ? 'color'
                            : field.type === 'date' ? 'date'
                            : field.type === 'time' ? 'time'
                            : 'text';
                    }
                    const current = localValues[field.name];
                    if (input.type === 'checkbox') { input.checked = !!current; }
                    else if (current !== undefined && current !== null) { input.value = current; }
                    input.addEventListener('input', () => {
                        localValues[field.name] = input.type === 'checkbox' ? input.checked
                            : input.type === 'number' ? parseFloat(input.value)
                            : input.value;
                        schedulePropagation(el.id);
                    });
                    wrap.appendChild(label);
                    wrap.appendChild(input);
                    container.appendChild(wrap);
                });
            });
        }

        document.getElementById('save').addEventListener('click', () => {
            command({
                command: 'setMeta',
                title: document.getElementById('title').value,
                slug: document.getElementById('slug').value
            }).then(() => fetch('/api/save', { method: 'POST' }))
              .then(r => r.json())
              .then(res => {
                  if (res.message) { alert(res.message); }
                  else { markDirty(false); }
              });
        });

        document.getElementById('toggle-frame').addEventListener('click', () => {
            const frame = document.getElementById('frame-preview');
            const host = document.getElementById('host-preview');
            const showFrame = frame.style.display === 'none';
            frame.style.display = showFrame ? 'block' : 'none';
            host.style.display = showFrame ? 'none' : 'block';
        });

        loadBlocks();
    </script>
</body>
</html>`
