package textproc

import "testing"

func TestNormalizeTranscript(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "pc export",
			raw:  "[철수] [오후 3:21] 너 내일 안 오면 알지?\n[민수] [오후 3:22] 왜 그래",
			want: "철수: 너 내일 안 오면 알지?\n민수: 왜 그래",
		},
		{
			name: "mobile export",
			raw:  "2024. 1. 5. 오후 3:21, 철수 : 그런 애랑 말 섞지 마\n2024. 1. 5. 오후 3:22, 영희 : 알겠어",
			want: "철수: 그런 애랑 말 섞지 마\n영희: 알겠어",
		},
		{
			name: "colon separated",
			raw:  "철수 : 꺼져\n영희:   진짜   너무해",
			want: "철수: 꺼져\n영희: 진짜 너무해",
		},
		{
			name: "timestamps and counters dropped",
			raw:  "--------------- 2024년 1월 5일 금요일 ---------------\n오후 3:21\n1\n철수: 안녕 오후 3:21\n\n",
			want: "철수: 안녕",
		},
		{
			name: "unattributed lines kept",
			raw:  "단톡방 공지\nhttps://example.com/a\n철수: 확인",
			want: "단톡방 공지\nhttps://example.com/a\n철수: 확인",
		},
		{
			name: "leading clock time is not a speaker",
			raw:  "오후 3:21 안녕하세요\nAM 10:05 hello",
			want: "오후 3:21 안녕하세요\nAM 10:05 hello",
		},
		{
			name: "crlf input",
			raw:  "철수: 하나\r\n영희: 둘\r\n",
			want: "철수: 하나\n영희: 둘",
		},
		{
			name: "empty",
			raw:  " \n\t\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTranscript(tt.raw); got != tt.want {
				t.Errorf("NormalizeTranscript() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}
