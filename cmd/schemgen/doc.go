/*
schemgen turns voxel data into tiled block structures.  Volumes given as dense
(depth, row, column) arrays, or closed surfaces sampled into a signed distance field,
are added as layers of a single sparse structure.  The structure is then cut into tiles
no larger than a maximum edge length, each with its own palette, and written as NBT or
msgpack objects to a local directory or a cloud bucket.

Structures can also be kept in a container engine (currently BadgerDB) between runs so
that layers from several invocations accumulate before tiling.

# Commands

In the following documentation, the type of brackets designate
<required parameter> and [optional parameter].

	schemgen about

Prints the tile format version and the available storage engines.

	schemgen raw <raw file> shape=<depth>,<rows>,<cols>[,<channels>] block=<spec> [true=<value>]
	         [out=<url>] [base=<name>] [store=<alias>]

Reads an uncompressed uint8 volume, adds every true voxel as the given block and writes
tiles and/or saves the structure.  Without "true", every non-zero voxel is true.

	schemgen shape box <x0,y0,z0> <x1,y1,z1> block=<spec> [out=<url>] [base=<name>] [store=<alias>]

Voxelizes an axis-aligned box using the [voxelize] settings.

	schemgen tiles store=<alias> [out=<url>] [base=<name>]
	schemgen split store=<alias> [out=<url>] [base=<name>]
	schemgen info  store=<alias>

Write a stored structure as one tile set, as one tile set per block type named
"<base>_<namespace>_<name>", or print a summary of it.

Block specs have the form "namespace:name[key=value,...]" where the namespace defaults
to "minecraft" and the property list is optional.

# Configuration

All commands accept "config=<file>" or the -config flag naming a TOML file:

	[logging]
	logfile = "/var/log/schemgen.log"
	max_log_size = 500 # MB
	max_log_age = 30   # days

	[structure]
	platform = "java"
	version = "1.21.8"

	[tiles]
	max_size = 48
	data_version = 4440
	format = "nbt"        # or "msgpack"
	compression = "gzip"  # "none" or "snappy"

	[voxelize]
	spacing = [1.0]       # or [sx, sy, sz]
	edge_mode = "center"  # "inner" or "outer"
	fill = true
	origin = [0.0, "auto", "auto"]  # per-axis; "auto" uses the mesh bounds
	size = ["auto", 64.0, "auto"]
	ignore_clip = false

	[output]
	url = "tiles"         # directory, file://, mem://, gs:// or s3:// URL
	base_name = "structure"

	[store.house]
	engine = "badger"
	path = "data/house"

Relative paths are interpreted relative to the directory holding the TOML file.
*/
package main
