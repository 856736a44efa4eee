package core

// Movie 是目录中的一条电影记录，加载后只读。
// JSON 字段名与原始数据集（dataset.csv）的列名保持一致。
type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	Genre            string  `json:"genre"` // 逗号分隔的类型标签，例如 "Action, Drama"
	OriginalLanguage string  `json:"original_language"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"` // 0-10 分
	VoteCount        int64   `json:"vote_count"`
	ReleaseDate      string  `json:"release_date"`
}
