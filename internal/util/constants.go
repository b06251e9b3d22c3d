package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"

	// 导出文件名中的时间戳格式
	FileStampFormat = "20060102_150405"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// 语音上传相关常量
const (
	MaxAudioBytes      = 25 << 20
	DefaultAudioExt    = ".wav"
	AssumedBytesPerSec = 16000
)

var AllowedAudioMimeTypes = []string{"audio/", "video/webm", "video/mp4", "application/ogg"}
