// Package nblink resolves ".nblink" descriptors: small JSON files placed inside a
// documentation tree that point at a Jupyter notebook living elsewhere.
//
// A descriptor looks like
//
//	{"path": "../../notebooks/intro.ipynb", "extra-media": ["images"]}
//
// Resolution computes the notebook's absolute path plus two slash-separated
// relative forms (against the documentation root, used as the dependency key,
// and against the target root, stored as document metadata), stages any extra
// media next to the notebook, reads the notebook as text and hands that text to
// a Renderer unchanged. Notebook content is never parsed here.
package nblink
