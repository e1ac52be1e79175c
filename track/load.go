package track

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Playlist 对应歌单服务返回的结构：{playlistId, count, tracks}。
type Playlist struct {
	PlaylistID string  `json:"playlistId,omitempty" yaml:"playlistId,omitempty"`
	Count      int     `json:"count,omitempty" yaml:"count,omitempty"`
	Tracks     []Track `json:"tracks" yaml:"tracks"`
}

// LoadFile 按扩展名读取 JSON 或 YAML 歌曲列表。
func LoadFile(path string) ([]Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取歌曲文件 %s 失败: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data))
	case ".json", "":
		return DecodeJSON(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("不支持的歌曲文件格式: %s", filepath.Ext(path))
	}
}

// DecodeJSON accepts either a bare array of tracks or a playlist object.
func DecodeJSON(r io.Reader) ([]Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var tracks []Track
		if err := json.Unmarshal(trimmed, &tracks); err != nil {
			return nil, fmt.Errorf("解析歌曲 JSON 失败: %w", err)
		}
		return normalizeAll(tracks), nil
	}
	var pl Playlist
	if err := json.Unmarshal(trimmed, &pl); err != nil {
		return nil, fmt.Errorf("解析歌单 JSON 失败: %w", err)
	}
	return normalizeAll(pl.Tracks), nil
}

// DecodeYAML accepts either a sequence of tracks or a mapping with a tracks key.
func DecodeYAML(r io.Reader) ([]Track, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("解析歌曲 YAML 失败: %w", err)
	}
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.SequenceNode {
		var tracks []Track
		if err := root.Decode(&tracks); err != nil {
			return nil, fmt.Errorf("解析歌曲 YAML 失败: %w", err)
		}
		return normalizeAll(tracks), nil
	}
	var pl Playlist
	if err := root.Decode(&pl); err != nil {
		return nil, fmt.Errorf("解析歌单 YAML 失败: %w", err)
	}
	return normalizeAll(pl.Tracks), nil
}

// normalizeAll 规范化每首歌，并为缺少 id 的歌曲分配会话 id。
func normalizeAll(tracks []Track) []Track {
	for i := range tracks {
		tracks[i] = tracks[i].Normalize()
		if tracks[i].ID == "" {
			tracks[i].ID = NewID()
		}
	}
	return tracks
}
