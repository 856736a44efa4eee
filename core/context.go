package core

// RecommendContext 承载一次推荐请求的用户、场景与参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string // content / history / popular

	// Params 请求级参数，例如：
	//   - item_id: 内容推荐的查询物品
	//   - count: 期望返回数量
	//   - avg_rating / rating_margin: 历史推荐的评分门槛
	Params map[string]any

	Labels map[string]Label
}

func NewRecommendContext(scene string) *RecommendContext {
	return &RecommendContext{
		Scene:  scene,
		Params: make(map[string]any),
		Labels: make(map[string]Label),
	}
}

// SetParam 写入请求参数。
func (rctx *RecommendContext) SetParam(key string, v any) {
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[key] = v
}

// ParamInt64 读取整数参数，兼容 int / int64 / float64。
func (rctx *RecommendContext) ParamInt64(key string) (int64, bool) {
	if rctx == nil || rctx.Params == nil {
		return 0, false
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// 请求参数 key
const (
	ParamItemID       = "item_id"
	ParamCount        = "count"
	ParamAvgRating    = "avg_rating"
	ParamRatingMargin = "rating_margin"
	ParamViewed       = "viewed" // map[int64]struct{}，用户已看过的物品
)
