package summarizer

import "fmt"

// promptTemplate asks for a per-channel digest of the day plus a frank
// retrospective from the model's point of view. Author names in the input
// are already normalized to roster member names.
const promptTemplate = `【タスク】
チャット履歴を確認し、社内での出来事・動きの全体像を把握するための日次サマリーを作成してください。

【カバレッジ要件】
すべてのチャンネルおよびスレッドを確認してください。
スレッドで進行している会話、botによる自動投稿（cron、通知系）も対象です。
時刻・投稿者・主旨を簡潔にまとめてください。
投稿が長文または議論が発展している場合は、要点に絞ってまとめてください。
サマリーの最後に、AI(あなた)から見たチームのやり取りの中での問題点や改善点、評価できる点などを、率直に（メンバーに忖度せず）述べてください。

【表記ルール】
投稿者名は入力ログの表記をそのまま使用してください。
入力ログの投稿者名はすでにmember_nameに正規化されています。

【出力フォーマット（例）】
#チャンネル名
 • 11:30 会議のお知らせ（原田）
→「ノックがあったら開けてください」と案内あり。

〜AIからのフィードバック〜
"フィードバックの内容"

【備考】
レスポンスには、"はい、承知いたしました"などの文章は含めないでください。
タイトルはすでに手動で記述しているので、不要です。本文から始めてください。
内容は要約で構いませんが、抜け漏れがないようにしてください。

---
【実際のチャット履歴】
%s
---
`

func buildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}
