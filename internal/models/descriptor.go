package models

// Descriptor is a fixed-length numeric embedding of one detected face.
// Descriptors from the same embedding model are comparable by Euclidean
// distance.
type Descriptor []float32

// DescriptorDim is the output dimension of the embedding model.
const DescriptorDim = 512
