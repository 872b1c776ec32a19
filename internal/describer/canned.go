package describer

import (
	"context"
	"fmt"
	"strings"
)

var cannedDescriptions = map[string]string{
	"person":        "人だよ。写真をとるときは、とってもいいか聞いてみよう。",
	"bicycle":       "二つの車輪でペダルをこいで走るのりものだよ。",
	"car":           "四つのタイヤで道路を走るのりものだよ。",
	"motorcycle":    "エンジンで走る二輪のバイクだよ。",
	"airplane":      "大きなつばさで空をとぶのりものだよ。",
	"bus":           "たくさんの人をのせて走る大きな車だよ。",
	"train":         "線路の上を走る長いのりものだよ。",
	"truck":         "荷物をたくさん運ぶ力もちの車だよ。",
	"boat":          "水の上をすすむのりものだよ。",
	"traffic light": "赤・黄・青の光で道をわたる合図をするよ。",
	"bench":         "公園にある、みんなですわれるいすだよ。",
	"bird":          "つばさと羽をもつ生きもの。鳴き声にも耳をすまそう。",
	"cat":           "ひげとしっぽがチャームポイントのねこだよ。",
	"dog":           "しっぽをふってよろこぶ、人なつっこい犬だよ。",
	"horse":         "長い足で速く走る、たてがみのある動物だよ。",
	"sheep":         "もこもこの毛におおわれた動物だよ。",
	"cow":           "白と黒のもようが多い、牛乳をくれる動物だよ。",
	"elephant":      "長い鼻と大きな耳をもつ、とても大きな動物だよ。",
	"bear":          "大きな体とまるい耳をもつ動物だよ。",
	"zebra":         "白と黒のしまもようが目じるしの動物だよ。",
	"giraffe":       "とても長い首で高い木の葉を食べる動物だよ。",
	"umbrella":      "雨の日に広げて使う、かさだよ。",
	"kite":          "風にのって空高くあがるたこだよ。",
	"bottle":        "飲みものを入れるボトルだよ。",
	"cup":           "飲みものを入れて飲むコップだよ。",
	"banana":        "黄色くて細長い、あまいくだものだよ。",
	"apple":         "赤くてまるい、しゃきしゃきのくだものだよ。",
	"orange":        "オレンジ色で皮をむいて食べるくだものだよ。",
	"broccoli":      "小さな木みたいな形の緑の野菜だよ。",
	"carrot":        "オレンジ色で細長い野菜だよ。",
	"chair":         "すわるための家具。足は何本あるかな？",
	"potted plant":  "はちに植えられた植物。葉っぱの形を見てみよう。",
	"clock":         "時間を教えてくれる時計だよ。",
	"book":          "ページをめくって読む本だよ。",
	"teddy bear":    "ふわふわのくまのぬいぐるみだよ。",
}

const defaultDescriptionFormat = "%sを見つけたよ！形や色をよく観察してみよう。"

// Local answers from a fixed table keyed by lower-cased label. It never fails.
type Local struct {
	table map[string]string
}

func NewLocal() *Local {
	return &Local{table: cannedDescriptions}
}

func (l *Local) Source() string {
	return SourceLocal
}

func (l *Local) Describe(ctx context.Context, objectName, place string, image []byte) (string, error) {
	key := strings.ToLower(strings.TrimSpace(objectName))
	if text, ok := l.table[key]; ok {
		return text, nil
	}

	name := strings.TrimSpace(objectName)
	if name == "" {
		name = "なにか"
	}
	return fmt.Sprintf(defaultDescriptionFormat, name), nil
}

// Fallback explains a detection without a model, for when the hosted describer fails.
// confidence < 0 omits the confidence and a non-positive size omits the dimensions.
func Fallback(label string, confidence float64, width, height int, reason string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "不明な物体"
	}

	var b strings.Builder
	b.WriteString(label)
	if confidence >= 0 {
		fmt.Fprintf(&b, "（信頼度%.1f%%）", confidence*100)
	}
	b.WriteString("が映っています。")
	if width > 0 && height > 0 {
		fmt.Fprintf(&b, "おおよそ%d×%dピクセルのサイズ感です。", width, height)
	}
	b.WriteString("説明を生成できなかったため簡易説明を表示しています。")
	if reason != "" {
		b.WriteString(" 詳細: ")
		b.WriteString(reason)
	}
	return b.String()
}
