package calculation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type response struct {
	Data struct {
		Inputs           map[string]string `json:"inputs"`
		CommissionAmount string            `json:"commission_amount"`
		NetResult        string            `json:"net_result"`
		Display          string            `json:"display"`
	} `json:"data"`
}

func post(t *testing.T, contentType, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calculations", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	Handler{Svc: Service{Source: "api"}}.Calculate(rr, req)

	var out response
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestCalculateJSONStrings(t *testing.T) {
	rr, out := post(t, "application/json", `{"valor_contrato":"1000","valor_quitado":"200","custo_produto":"50","percentual_comissao":"10"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 650,00", out.Data.Display)
	require.Equal(t, "100", out.Data.CommissionAmount)
	require.Equal(t, "650", out.Data.NetResult)
	require.Equal(t, "1000", out.Data.Inputs["valor_contrato"])
}

func TestCalculateJSONNumbersAndNulls(t *testing.T) {
	rr, out := post(t, "application/json; charset=utf-8", `{"valor_contrato":1500,"valor_quitado":300,"custo_produto":75.5,"percentual_comissao":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 1.124,50", out.Data.Display)
}

func TestCalculateLenientText(t *testing.T) {
	rr, out := post(t, "application/json", `{"valor_contrato":"1000abc","valor_quitado":"abc","percentual_comissao":" 2.5","desconhecido":"999"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 975,00", out.Data.Display)
	require.NotContains(t, out.Data.Inputs, "desconhecido")
}

func TestCalculateEmptyObject(t *testing.T) {
	rr, out := post(t, "application/json", `{}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 0,00", out.Data.Display)
}

func TestCalculateURLEncoded(t *testing.T) {
	form := url.Values{}
	form.Set("valor_contrato", "1000")
	form.Set("valor_quitado", "200")
	form.Set("custo_produto", "50")
	form.Set("percentual_comissao", "10")
	rr, out := post(t, "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 650,00", out.Data.Display)
}

func TestCalculateRejectsBadBodies(t *testing.T) {
	for _, body := range []string{`not json`, `{"valor_contrato":true}`, `{"valor_contrato":{"x":1}}`} {
		rr, _ := post(t, "application/json", body)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
		require.Contains(t, rr.Body.String(), "BAD_REQUEST")
	}
}

func TestServiceCalculateNegative(t *testing.T) {
	res, err := Service{}.Calculate(map[string]string{"valor_contrato": "100", "valor_quitado": "150"})
	require.NoError(t, err)
	require.Equal(t, "-R$ 50,00", res.Display)
	require.True(t, res.NetResult.IsNegative())
}
