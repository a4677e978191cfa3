// Package textparse turns unstructured switch CLI output into structured
// records.
//
// The package is built from a few small pieces that the fact assembler in
// internal/driver composes per command:
//
//   - Block segmentation: SplitBlocks cuts a multi-entity response into
//     per-entity blocks at separator lines, TableSections finds the tables
//     that sit between a dashed rule and the next blank line.
//   - Field extraction: a Registry lists the fields of one fact type as
//     (name, pattern, decoder, default, required) and Extract applies it to
//     a block.
//   - Table reconstruction: FixedWidthRows and DelimitedRows split table
//     lines into cells, Reconstruct merges continuation rows (blank key
//     cell) into the record they belong to.
//   - Duration parsing for the compact "D,HH:MM:SS" and verbose
//     "N weeks, N days, ..." uptime shapes.
//
// Everything here is pure and holds no state between calls.
package textparse
