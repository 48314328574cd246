package recognize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/recognize"
)

func TestExtractAmount(t *testing.T) {
	type testCase struct {
		name      string
		text      string
		want      string
		wantFound bool
	}

	tests := []testCase{
		{
			name:      "AmountWithLabel",
			text:      "Total: 123.45 PHP",
			want:      "123.45",
			wantFound: true,
		},
		{
			name:      "WholeNumber",
			text:      "PRICE 250 PESOS",
			want:      "250",
			wantFound: true,
		},
		{
			name:      "FirstMatchWins",
			text:      "aisle 3 item 99.50",
			want:      "3",
			wantFound: true,
		},
		{
			name:      "MissingIntegerPart",
			text:      "change due .45",
			want:      ".45",
			wantFound: true,
		},
		{
			name: "NoDigits",
			text: "no digits here",
		},
		{
			name: "Empty",
			text: "",
		},
		{
			name:      "NoisyOCROutput",
			text:      "T0tal..: 1,234.50php",
			want:      "0",
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := recognize.ExtractAmount(tt.text)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipeline_ReadAmount(t *testing.T) {
	type testCase struct {
		name         string
		setupMock    func(m *recognize.MockEngine)
		wantAmount   string
		wantFound    bool
		wantErr      bool
		wantAdvisory bool
	}

	tests := []testCase{
		{
			name: "AmountFound",
			setupMock: func(m *recognize.MockEngine) {
				m.EXPECT().
					Recognize(gomock.Any(), []byte("frame"), "eng").
					Return([]byte("Total: 123.45 PHP"), nil)
			},
			wantAmount: "123.45",
			wantFound:  true,
		},
		{
			name: "NoDigitsIsNotAnError",
			setupMock: func(m *recognize.MockEngine) {
				m.EXPECT().
					Recognize(gomock.Any(), []byte("frame"), "eng").
					Return([]byte("no digits here"), nil)
			},
		},
		{
			name: "EngineFailureRaisesAdvisory",
			setupMock: func(m *recognize.MockEngine) {
				m.EXPECT().
					Recognize(gomock.Any(), []byte("frame"), "eng").
					Return(nil, errors.New("engine timeout"))
			},
			wantErr:      true,
			wantAdvisory: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			engine := recognize.NewMockEngine(ctrl)
			tt.setupMock(engine)

			board := advisory.NewBoard()
			pipeline := recognize.NewPipeline(engine, board, "eng")

			amount, found, err := pipeline.ReadAmount(context.Background(), []byte("frame"))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantAmount, amount)
			assert.Equal(t, tt.wantFound, found)

			_, raised := board.Get(advisory.KindRecognition)
			assert.Equal(t, tt.wantAdvisory, raised)
			assert.False(t, pipeline.Busy())
		})
	}
}

func TestPipeline_AdvisoryClearsOnNextSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := recognize.NewMockEngine(ctrl)
	gomock.InOrder(
		engine.EXPECT().Recognize(gomock.Any(), gomock.Any(), "").Return(nil, errors.New("boom")),
		engine.EXPECT().Recognize(gomock.Any(), gomock.Any(), "").Return([]byte("99"), nil),
	)

	board := advisory.NewBoard()
	pipeline := recognize.NewPipeline(engine, board, "")

	_, _, err := pipeline.ReadAmount(context.Background(), []byte("a"))
	require.Error(t, err)

	_, raised := board.Get(advisory.KindRecognition)
	require.True(t, raised)

	amount, found, err := pipeline.ReadAmount(context.Background(), []byte("b"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "99", amount)

	_, raised = board.Get(advisory.KindRecognition)
	assert.False(t, raised)
}

func TestPipeline_BusyState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	started := make(chan struct{})

	engine := recognize.NewMockEngine(ctrl)
	engine.EXPECT().
		Recognize(gomock.Any(), gomock.Any(), "").
		DoAndReturn(func(context.Context, []byte, string) ([]byte, error) {
			close(started)
			<-release
			return []byte("7"), nil
		})

	board := advisory.NewBoard()
	pipeline := recognize.NewPipeline(engine, board, "")

	var transitions []bool

	pipeline.OnBusy(func(busy bool) {
		transitions = append(transitions, busy)
	})

	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = pipeline.ReadAmount(context.Background(), []byte("frame"))
	}()

	<-started
	assert.True(t, pipeline.Busy())

	_, _, err := pipeline.ReadAmount(context.Background(), []byte("other"))
	assert.ErrorIs(t, err, recognize.ErrBusy)

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pipeline did not finish")
	}

	assert.False(t, pipeline.Busy())
	assert.Equal(t, []bool{true, false}, transitions)
}
