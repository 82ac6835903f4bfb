// Package facematch matches face embeddings against the enrolled student directory.
//
// Vectors are compared with cosine similarity after L2 normalization. The
// directory is an immutable snapshot; DirectoryCache swaps snapshots atomically
// so concurrent matches always see a complete mapping.
package facematch
