package models

// File is a managed file entity joined with its uploading user.
type File struct {
	FID      int64  `json:"fid"`
	UID      int64  `json:"uid,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Filename string `json:"filename"`
	URI      string `json:"uri"`
	Filemime string `json:"filemime,omitempty"`
	Filesize int64  `json:"filesize,omitempty"`
	Created  int64  `json:"created,omitempty"`
	Changed  int64  `json:"changed,omitempty"`
}
