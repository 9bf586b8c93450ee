package xconf

// Format 配置文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 只读配置视图。
//
// Reload 原子替换内部快照，并发的 Unmarshal 要么看到旧数据要么看到新数据，
// 不会看到部分加载的结果。
type Config interface {
	// Unmarshal 将 path 下的配置反序列化到 target，path 为空表示根节点
	Unmarshal(path string, target any) error

	// Exists 判断 path 是否存在
	Exists(path string) bool

	// Keys 返回 path 下的直接子键（已排序），path 为空表示根节点
	Keys(path string) []string

	// Reload 重新读取文件，仅对 New 创建的配置有效
	Reload() error

	// Path 返回配置文件路径，NewFromBytes 创建时为空
	Path() string

	// Format 返回配置格式
	Format() Format
}
