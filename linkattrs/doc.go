// Package linkattrs copies metadata of linked notes onto rendered
// internal-link elements as data-link-* attributes, so that CSS can style a
// link by the properties of its target.
//
// The work is split in three steps: Resolve finds the target note of a
// link, FetchTargetAttributes builds the metadata mapping for it, and
// ClearExtraAttributes / SetLinkNewProps reconcile that mapping onto the
// element. An Annotator runs these steps over the DOM surfaces that show
// links: reading-view divs and table cells, file explorer entries, editor
// spans, reading-view anchors and every anchor visible in the workspace.
package linkattrs
