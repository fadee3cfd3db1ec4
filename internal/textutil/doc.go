// Package textutil normalizes and sanitizes the names that move between the
// host scene, the tracker and the file system.
//
// Tracker names are compared after Unicode NFC normalization so that a name
// typed on one platform matches the same name stored from another. File and
// token helpers keep generated paths portable.
package textutil
