/*
Package schemgen holds the primitives shared by the voxel structure generator: integer
points in voxel space, logging, command-line requests, compression of serialized records,
and the error kinds surfaced by the conversion pipeline.

Coordinates follow the target voxel convention: the first axis runs west to east, the
second from bottom to top, and the third from north to south.
*/
package schemgen
