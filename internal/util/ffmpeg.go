package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo 存储音频信息
type AudioInfo struct {
	Duration   float64 `json:"duration"` // 时长（秒）
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	Format     string  `json:"format"`
	Size       int64   `json:"size"`
}

// ProbeAudio 使用ffmpeg-go库获取音频元数据
func ProbeAudio(audioPath string) (*AudioInfo, error) {
	fileInfo, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("音频文件不存在: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(audioPath)
	if err != nil {
		return nil, fmt.Errorf("获取音频信息失败: %w", err)
	}

	var result struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}

	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("解析音频信息失败: %w", err)
	}

	info := &AudioInfo{Size: fileInfo.Size(), Format: "unknown"}
	for _, stream := range result.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		info.Codec = stream.CodecName
		info.Channels = stream.Channels
		info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
		if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
			info.Duration = d
		}
		break
	}

	// webm 等容器的时长只出现在 format 中
	if info.Duration == 0 {
		if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	if size, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
		info.Size = size
	}

	if result.Format.Format != "" {
		info.Format = strings.Split(result.Format.Format, ",")[0]
	}

	return info, nil
}

// EstimateAudioSeconds 无法探测时按 16kHz 单声道粗略估算时长，至少 1 秒
func EstimateAudioSeconds(size int) int {
	secs := size / AssumedBytesPerSec
	if secs < 1 {
		return 1
	}
	return secs
}

// Seconds 探测结果取整为秒，至少 1 秒
func (a *AudioInfo) Seconds() int {
	secs := int(math.Round(a.Duration))
	if secs < 1 {
		return 1
	}
	return secs
}

// GetFFmpegVersion 获取FFmpeg版本信息，用于检查FFmpeg是否正确安装
func GetFFmpegVersion() (string, error) {
	// ffmpeg-go库没有NewCommand方法，直接调用ffmpeg命令
	cmd := exec.Command("ffmpeg", "-version", "-hide_banner")
	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("获取FFmpeg版本失败，请确保FFmpeg已正确安装: %v, %s", err, errOut.String())
	}

	line, _, _ := strings.Cut(out.String(), "\n")
	return line, nil
}
