/*
	Package dvid provides types, constants, and functions that have no other dependencies
	and can be used by all voxterrain packages.  This includes leveled logging, integer
	points and boxes in voxel space, and serialization with optional compression and
	checksums.
*/
package dvid
