package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeAudio       = "audio/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeDocx        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedAudioExtensions  = []string{".webm", ".wav", ".mp3", ".m4a", ".ogg", ".flac"}
	AllowedResumeExtensions = []string{".pdf", ".docx", ".txt"}
)
