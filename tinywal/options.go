package tinywal

import "github.com/gofish2020/catreader/utils"

type Options struct {
	// segment 文件所在目录
	Dir string
	// segment 文件后缀，例如 .log / .seg
	SegmentFileExt string
	// 单个 segment 文件的最大大小
	SegmentSize int64
	// block 缓存大小（字节），所有 segment 共用；0 表示不缓存
	BlockCacheSize uint64
	// 每次写入后都 fsync
	Sync bool
	// 累计写入 BytesPerSync 字节后 fsync 一次
	BytesPerSync uint64
}

var DefaultOptions = Options{
	Dir:            utils.ExecPath("wal"),
	SegmentFileExt: ".log",
	SegmentSize:    1 * GB,
	BlockCacheSize: 32 * MB,
	Sync:           false,
	BytesPerSync:   0,
}
