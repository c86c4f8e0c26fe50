// Package diagram holds the values that flow through the render pipeline:
// the immutable Input, the committed Outcome, and the ErrorKind taxonomy
// shown to users when a render is rejected.
package diagram
