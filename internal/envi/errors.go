package envi

import "errors"

var ErrMalformedHeader = errors.New("malformed ENVI header line")
var ErrMissingMapInfo = errors.New("ENVI header has no usable map info")
var ErrBandNotFound = errors.New("band not found in band_names")
var ErrBandNotUnique = errors.New("band not unique in band_names")
var ErrUnsupportedDataType = errors.New("unsupported ENVI data type")
var ErrUnsupportedInterleave = errors.New("only bsq interleave is supported")
var ErrShortRead = errors.New("ENVI data file is shorter than its header describes")
