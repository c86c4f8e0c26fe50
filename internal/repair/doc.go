// Package repair rewrites diagram text to undo common authoring mistakes:
// arrows split by stray spaces, padded edge labels, quotes inside node
// labels and block keywords glued to their title.
//
// Repair is pure and total. Rules are applied in a fixed order until the
// text stops changing, so repairing twice yields the same text as repairing
// once. An unchanged result means no repair is available.
package repair
