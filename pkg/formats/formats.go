// Package formats reads and writes mesh file formats.
//
// Only Wavefront OBJ is supported. Faces are triangulated on read and all
// indices are 0-based once parsed; the writer restores OBJ's 1-based form.
package formats
