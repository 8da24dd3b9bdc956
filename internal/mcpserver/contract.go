package mcpserver

// RepositoryLayout describes how saved notebooks are laid out in the
// revision store, for consumers reading revisions through the tools.
const RepositoryLayout = `# nbsave Repository Layout

Every saved notebook is a directory named after the notebook path.

## Structure

` + "```" + `text
work/analysis.ipynb/
  HEADER        # notebook JSON without its "cells" array
  UUIDS         # cell ids, one per line, in notebook order
  cells/<id>    # one JSON file per cell
` + "```" + `

## Rules

1. **Cell ids are stable.** A cell keeps its id across saves; cells without
   a usable id are assigned a random UUID on first save.
2. **One commit per event.** A save commits as ` + "`save: <path>`" + ` and a
   rename as ` + "`rename: <old> -> <new>`" + `.
3. **Saves without changes** do not create a commit; the previous commit is
   reported instead.
4. **read_notebook** reassembles the cells in UUIDS order into a complete
   .ipynb document. Pass a commit hash as ` + "`rev`" + ` to read an older
   revision.
`
