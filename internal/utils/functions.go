package utils

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func RenewOutputPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ToMB converts bytes to megabytes rounded to one decimal.
func ToMB(bytes int64) float64 {
	return math.Round(float64(bytes)/(1024*1024)*10) / 10
}

func TempPath(outputPath string) string {
	return outputPath + TempSuffix
}

// Clean removes leftover temp files next to outputPath. When outputPath is a
// directory, every temp file inside it is removed.
func Clean(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err == nil && info.IsDir() {
		files, err := os.ReadDir(outputPath)
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), TempSuffix) {
				continue
			}
			if err := os.Remove(filepath.Join(outputPath, file.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	if err := os.Remove(TempPath(outputPath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
