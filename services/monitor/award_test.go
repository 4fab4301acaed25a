package monitor

import (
	"testing"

	"bidwatch/lib/scrapers/epoint"

	"github.com/stretchr/testify/require"
)

const awardHtml = `
<div>
<table>
	<tr><td>项目名称：</td><td>某某大道改造工程</td></tr>
	<tr><td>中标人：</td><td>宜昌盛荣建设有限公司</td><td>中标价：</td><td>1234567.89元</td></tr>
	<tr><td>工期：</td><td>180日历天</td></tr>
</table>
</div>`

func awardNotice() epoint.Notice {
	return epoint.Notice{
		InfoID:      "award-1",
		InfoURL:     "/jyxx/003001/003001005/20250314/award-1.html",
		Title:       "某某大道改造工程中标结果公示",
		InfoDate:    "2025-03-14",
		InfoContent: awardHtml,
	}
}

func TestParseAward(t *testing.T) {
	rec := ParseAward(awardNotice())

	require.Equal(t, "award-1", rec.InfoID)
	require.Equal(t, "/jyxx/003001/003001005/20250314/award-1.html", rec.InfoURL)

	require.Equal(t, "某某大道改造工程", rec.Data["项目名称"])
	require.Equal(t, "宜昌盛荣建设有限公司", rec.Data["中标人"])
	require.Equal(t, "1234567.89元", rec.Data["中标价"])
	require.Equal(t, "180日历天", rec.Data["工期"])
}

func TestParseAwardNoTable(t *testing.T) {
	rec := ParseAward(epoint.Notice{
		InfoID:      "award-2",
		InfoContent: "<p>纯文本公告，没有表格</p>",
	})
	require.Empty(t, rec.Data)
}

func TestCleanKey(t *testing.T) {
	require.Equal(t, "中标人", cleanKey("中标人："))
	require.Equal(t, "中标人", cleanKey(" 中标 人: "))
	require.Equal(t, "项目名称", cleanKey("项目名称"))
}

func TestExtractField(t *testing.T) {
	n := awardNotice()
	require.Equal(t, "宜昌盛荣建设有限公司", ExtractField(n, "中标人"))
	require.Equal(t, "1234567.89元", ExtractField(n, "中标价"))
	require.Equal(t, "未找到信息", ExtractField(n, "监理人"))
}
