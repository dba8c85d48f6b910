package types

// --- Link tool inputs ---

type LinkAttributesInput struct {
	Link     string `json:"link" jsonschema:"Link text as written in a note, e.g. projects/alpha#Plan"`
	Source   string `json:"source,omitempty" jsonschema:"Vault path of the note containing the link. Default: vault root"`
	DataHref bool   `json:"dataHref,omitempty" jsonschema:"Also return the target basename under data-href. Default: false"`
}

type AnnotateHTMLInput struct {
	HTML    string `json:"html" jsonschema:"Rendered HTML fragment containing link elements"`
	Surface string `json:"surface,omitempty" jsonschema:"Which sweep to run: reading (a.internal-link) or div (div/td links and file explorer) or editor (live-preview spans). Default: reading"`
	Source  string `json:"source,omitempty" jsonschema:"Vault path of the note the fragment was rendered from. Required for editor"`
}

type RenderNoteInput struct {
	Path    string `json:"path" jsonschema:"Vault path of the note to render. Ignored for the explorer surface"`
	Surface string `json:"surface,omitempty" jsonschema:"reading or editor or explorer. Default: reading"`
	Open    bool   `json:"open,omitempty" jsonschema:"Keep the rendered view open as a pane so refresh_panes updates it. Default: false"`
	Pane    int    `json:"pane,omitempty" jsonschema:"Render into this open pane, replacing what it shows. Implies open"`
}

type RefreshPanesInput struct {
	TargetAttributes   []string `json:"targetAttributes,omitempty" jsonschema:"Replace the synchronized attribute names before refreshing"`
	TargetTags         *bool    `json:"targetTags,omitempty" jsonschema:"Enable or disable tag synchronization"`
	GetFromInlineField *bool    `json:"getFromInlineField,omitempty" jsonschema:"Enable or disable inline key:: value fields"`
	EnableFileList     *bool    `json:"enableFileList,omitempty" jsonschema:"Enable or disable file explorer annotation"`
}

type ClosePaneInput struct {
	Pane int `json:"pane" jsonschema:"Pane id returned by render_note"`
}

// --- Link tool results ---

// LinkAttributes is the metadata a link would receive.
type LinkAttributes struct {
	Link       string            `json:"link"`
	Target     string            `json:"target"`
	Props      map[string]string `json:"props"`
	Attributes map[string]string `json:"attributes"` // props under their data-link-* names
}

// RenderedView is a rendered and annotated surface.
type RenderedView struct {
	Path    string `json:"path,omitempty"`
	Surface string `json:"surface"`
	Pane    int    `json:"pane,omitempty"`
	HTML    string `json:"html"`
}
