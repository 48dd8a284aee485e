package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const subjectPrefix = "【栃木プラットフォーム】"

// InquiryData feeds the inquiry notification and confirmation emails.
type InquiryData struct {
	InquiryID     string
	CompanyName   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Message       string
	CompanyNames  []string
	DashboardURL  string
}

// SubscriptionData feeds the subscription lifecycle emails.
type SubscriptionData struct {
	CompanyName  string
	PlanName     string
	Price        string
	EndsAt       string
	Immediately  bool
	DashboardURL string
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="ja"><head><meta charset="UTF-8"></head>
<body style="font-family:sans-serif;line-height:1.6;color:#333;max-width:600px;margin:0 auto;padding:20px">
<h2 style="color:#2563eb">{{.Title}}</h2>
{{.Body}}
<hr style="margin-top:32px;border:none;border-top:1px solid #eee">
<p style="font-size:12px;color:#888">このメールは栃木プラットフォームから自動送信されています。</p>
</body></html>`))

var bodies = map[string]*template.Template{
	"inquiryBusiness": template.Must(template.New("inquiryBusiness").Parse(`
<p>{{.CompanyName}} 様</p>
<p>新しいお問い合わせが届きました。</p>
<table>
<tr><td>お名前</td><td>{{.CustomerName}}</td></tr>
<tr><td>メール</td><td>{{.CustomerEmail}}</td></tr>
<tr><td>電話番号</td><td>{{.CustomerPhone}}</td></tr>
</table>
<p style="white-space:pre-wrap">{{.Message}}</p>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">管理画面で確認する</a></p>{{end}}`)),
	"inquiryCustomer": template.Must(template.New("inquiryCustomer").Parse(`
<p>{{.CustomerName}} 様</p>
<p>お問い合わせを受け付けました。以下の企業へ送信しました。</p>
<ul>{{range .CompanyNames}}<li>{{.}}</li>{{end}}</ul>
<p style="white-space:pre-wrap">{{.Message}}</p>
<p>各企業から直接ご連絡いたします。</p>`)),
	"subscriptionWelcome": template.Must(template.New("subscriptionWelcome").Parse(`
<p>{{.CompanyName}} 様</p>
<p>{{.PlanName}}（月額{{.Price}}）へのご登録ありがとうございます。</p>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">ダッシュボードへ</a></p>{{end}}`)),
	"subscriptionCancellation": template.Must(template.New("subscriptionCancellation").Parse(`
<p>{{.CompanyName}} 様</p>
{{if .Immediately}}<p>{{.PlanName}}を解約しました。</p>{{else}}<p>{{.PlanName}}は{{.EndsAt}}に終了します。それまでは引き続きご利用いただけます。</p>{{end}}`)),
	"subscriptionPaymentFailed": template.Must(template.New("subscriptionPaymentFailed").Parse(`
<p>{{.CompanyName}} 様</p>
<p>{{.PlanName}}のお支払いに失敗しました。お支払い方法をご確認ください。</p>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">お支払い情報を更新する</a></p>{{end}}`)),
	"instagramSyncSuccess": template.Must(template.New("instagramSyncSuccess").Parse(`
<p>{{.CompanyName}} 様</p>
<p>Instagramの投稿を{{.Count}}件同期しました。</p>`)),
	"instagramSyncError": template.Must(template.New("instagramSyncError").Parse(`
<p>{{.CompanyName}} 様</p>
<p>Instagramの同期中にエラーが発生しました。</p>
<p style="color:#b91c1c">{{.Error}}</p>
<p>Instagram連携を再設定してください。</p>`)),
}

func render(to, name, title, subject string, data any) (Message, error) {
	msg := Message{To: to, Subject: subjectPrefix + subject}

	tpl, ok := bodies[name]
	if !ok {
		return msg, fmt.Errorf("unknown email template %q", name)
	}
	var body bytes.Buffer
	if err := tpl.Execute(&body, data); err != nil {
		return msg, err
	}
	var out bytes.Buffer
	if err := layout.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())}); err != nil {
		return msg, err
	}
	msg.HTML = out.String()
	return msg, nil
}

func InquiryBusinessNotification(to string, d InquiryData) (Message, error) {
	return render(to, "inquiryBusiness", "新しいお問い合わせ", "新しいお問い合わせが届きました", d)
}

func InquiryCustomerConfirmation(to string, d InquiryData) (Message, error) {
	return render(to, "inquiryCustomer", "お問い合わせ受付", "お問い合わせを受け付けました", d)
}

func SubscriptionWelcome(to string, d SubscriptionData) (Message, error) {
	return render(to, "subscriptionWelcome", "ご登録ありがとうございます", "サブスクリプション登録完了", d)
}

func SubscriptionCancellation(to string, d SubscriptionData) (Message, error) {
	return render(to, "subscriptionCancellation", "解約のお知らせ", "サブスクリプション解約のお知らせ", d)
}

func SubscriptionPaymentFailed(to string, d SubscriptionData) (Message, error) {
	return render(to, "subscriptionPaymentFailed", "お支払いエラー", "お支払いに失敗しました", d)
}

func InstagramSyncSuccess(to, companyName string, count int) (Message, error) {
	return render(to, "instagramSyncSuccess", "Instagram同期完了", "Instagram同期完了", struct {
		CompanyName string
		Count       int
	}{companyName, count})
}

func InstagramSyncError(to, companyName, errMsg string) (Message, error) {
	return render(to, "instagramSyncError", "Instagram同期エラー", "Instagram同期エラー", struct {
		CompanyName string
		Error       string
	}{companyName, errMsg})
}

// SampleKinds lists the template kinds accepted by Sample.
var SampleKinds = []string{
	"inquiryBusinessNotification",
	"inquiryCustomerConfirmation",
	"subscriptionWelcome",
	"subscriptionCancellation",
	"subscriptionPaymentFailed",
	"instagramSyncSuccess",
	"instagramSyncError",
}

// Sample renders a template with placeholder data for manual testing.
func Sample(kind, to string) (Message, error) {
	inquiry := InquiryData{
		InquiryID:     "sample",
		CompanyName:   "テスト株式会社",
		CustomerName:  "山田太郎",
		CustomerEmail: "taro@example.jp",
		CustomerPhone: "028-123-4567",
		Message:       "リフォームの見積もりをお願いします。",
		CompanyNames:  []string{"テスト株式会社", "サンプル工務店"},
	}
	sub := SubscriptionData{
		CompanyName: "テスト株式会社",
		PlanName:    "フルプラットフォームプラン",
		Price:       "¥120,000",
		EndsAt:      "2026-12-31",
	}

	switch kind {
	case "inquiryBusinessNotification":
		return InquiryBusinessNotification(to, inquiry)
	case "inquiryCustomerConfirmation":
		return InquiryCustomerConfirmation(to, inquiry)
	case "subscriptionWelcome":
		return SubscriptionWelcome(to, sub)
	case "subscriptionCancellation":
		return SubscriptionCancellation(to, sub)
	case "subscriptionPaymentFailed":
		return SubscriptionPaymentFailed(to, sub)
	case "instagramSyncSuccess":
		return InstagramSyncSuccess(to, sub.CompanyName, 12)
	case "instagramSyncError":
		return InstagramSyncError(to, sub.CompanyName, "Instagram authentication failed")
	}
	return Message{}, fmt.Errorf("unknown email type %q", kind)
}
