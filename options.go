package catreader

type Options struct {
	// 文件作为 current source 期间持有共享锁（flock），切换到下一个文件时释放
	SharedLock bool
	// 按后缀透明解压：.gz / .zst
	Decompress bool
}

var DefaultOptions = Options{
	SharedLock: false,
	Decompress: false,
}
