package dashboard

const layoutTemplate = `
{{define "header"}}<!DOCTYPE html>
<html>
<head>
    <title>House Insights - {{.Title}}</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #2c7be5 0%, #1f9d8a 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0 0 10px 0; font-size: 2em; }
        .nav a { color: white; margin-right: 16px; text-decoration: none; opacity: 0.8; }
        .nav a.active { opacity: 1; font-weight: bold; border-bottom: 2px solid white; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 20px; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); margin-bottom: 20px; }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        .metric { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #eee; }
        .metric:last-child { border-bottom: none; }
        .metric-label { color: #666; }
        .metric-value { font-weight: bold; color: #333; }
        .bar-row { display: flex; align-items: center; margin: 2px 0; font-size: 0.85em; }
        .bar-label { width: 160px; color: #555; }
        .bar { height: 14px; background-color: #2c7be5; border-radius: 3px; }
        .bar.negative { background-color: #dc3545; }
        .flash { background: #fff3cd; border: 1px solid #ffc107; padding: 12px; border-radius: 8px; margin-bottom: 20px; }
        .warning { color: #856404; }
        .big-price { font-size: 2.5em; font-weight: bold; color: #1f9d8a; text-align: center; margin: 20px 0; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        th { background-color: #f8f9fa; }
        .positive { color: #28a745; }
        .negative-text { color: #dc3545; }
        label { display: block; margin-top: 12px; color: #555; }
        input[type=range] { width: 100%; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>House Insights</h1>
        <div class="nav">
            <a href="/" {{if eq .Active "overview"}}class="active"{{end}}>Overview</a>
            <a href="/model" {{if eq .Active "model"}}class="active"{{end}}>Model</a>
            <a href="/predict" {{if eq .Active "predict"}}class="active"{{end}}>Predict</a>
            <a href="/deals" {{if eq .Active "deals"}}class="active"{{end}}>Deals</a>
        </div>
    </div>
    {{if .Flash}}<div class="flash">{{.Flash}}</div>{{end}}
{{end}}

{{define "footer"}}
</div>
</body>
</html>
{{end}}
`

const overviewTemplate = `
{{define "overview"}}{{template "header" .}}
<div class="grid">
    <div class="card">
        <h3>Dataset</h3>
        <div class="metric"><span class="metric-label">Houses</span><span class="metric-value">{{.Summary.Rows}}</span></div>
        <div class="metric"><span class="metric-label">Categorical columns</span><span class="metric-value">{{len .Summary.CategoricalColumns}}</span></div>
    </div>
    <div class="card">
        <h3>Top Correlations with SalePrice</h3>
        {{range .Summary.TopCorrelations}}
        <div class="bar-row">
            <span class="bar-label">{{.Feature}}</span>
            <div class="bar {{if lt .Value 0.0}}negative{{end}}" style="width: {{printf "%.1f" (share (abs .Value) 1.0)}}%"></div>
            <span>&nbsp;{{printf "%.3f" .Value}}</span>
        </div>
        {{end}}
    </div>
</div>
<div class="card">
    <h3>SalePrice Distribution</h3>
    {{range .Summary.PriceHistogram}}
    <div class="bar-row">
        <span class="bar-label">{{price .Lo}} - {{price .Hi}}</span>
        <div class="bar" style="width: {{printf "%.1f" (share .Count $.MaxBin)}}%"></div>
        <span>&nbsp;{{.Count}}</span>
    </div>
    {{end}}
</div>
<div class="card">
    <h3>SalePrice by {{.Column}}</h3>
    <form method="GET" action="/">
        <select name="column" onchange="this.form.submit()">
            {{range .Summary.CategoricalColumns}}<option value="{{.}}" {{if eq . $.Column}}selected{{end}}>{{.}}</option>{{end}}
        </select>
    </form>
    <table>
        <tr><th>{{.Column}}</th><th>Count</th><th>Min</th><th>Q1</th><th>Median</th><th>Q3</th><th>Max</th></tr>
        {{range .Boxes}}
        <tr>
            <td>{{.Category}}</td><td>{{.Count}}</td><td>{{price .Min}}</td><td>{{price .Q1}}</td>
            <td>{{price .Median}}</td><td>{{price .Q3}}</td><td>{{price .Max}}</td>
        </tr>
        {{end}}
    </table>
</div>
{{template "footer" .}}{{end}}
`

const modelTemplate = `
{{define "model"}}{{template "header" .}}
<div class="grid">
    <div class="card">
        <h3>Model</h3>
        {{with .Insights.Metadata}}
        <div class="metric"><span class="metric-label">Version</span><span class="metric-value">{{.Version}}</span></div>
        <div class="metric"><span class="metric-label">Estimator</span><span class="metric-value">{{.Model}}</span></div>
        <div class="metric"><span class="metric-label">Target transform</span><span class="metric-value">{{.TargetTransform}}</span></div>
        {{if .TrainingRows}}<div class="metric"><span class="metric-label">Training rows</span><span class="metric-value">{{.TrainingRows}}</span></div>{{end}}
        {{end}}
    </div>
    <div class="card">
        <h3>Actual vs Predicted</h3>
        {{if .Insights.Fit.Count}}
        <div class="metric"><span class="metric-label">Houses</span><span class="metric-value">{{.Insights.Fit.Count}}</span></div>
        <div class="metric"><span class="metric-label">MAE</span><span class="metric-value">{{price .Insights.Fit.MAE}}</span></div>
        <div class="metric"><span class="metric-label">RMSE</span><span class="metric-value">{{price .Insights.Fit.RMSE}}</span></div>
        <div class="metric"><span class="metric-label">R&sup2;</span><span class="metric-value">{{printf "%.4f" .Insights.Fit.R2}}</span></div>
        <div class="metric"><span class="metric-label">MAPE</span><span class="metric-value">{{printf "%.2f" .Insights.Fit.MAPE}}%</span></div>
        {{else}}
        <p class="warning">The dataset has no stored predictions.</p>
        {{end}}
    </div>
</div>
<div class="card">
    <h3>Top Features by Coefficient</h3>
    {{if .Insights.Warning}}<p class="warning">{{.Insights.Warning}}</p>{{end}}
    {{range .Insights.TopFeatures}}
    <div class="bar-row">
        <span class="bar-label">{{.Feature}}</span>
        <div class="bar {{if lt .Coefficient 0.0}}negative{{end}}" style="width: {{printf "%.1f" (share (abs .Coefficient) $.MaxCoef)}}%"></div>
        <span>&nbsp;{{printf "%.4f" .Coefficient}}</span>
    </div>
    {{end}}
</div>
{{template "footer" .}}{{end}}
`

const predictTemplate = `
{{define "predict"}}{{template "header" .}}
<div class="grid">
    <div class="card">
        <h3>House Features</h3>
        <form method="POST" action="/predict" id="predict-form">
            {{range .Sliders}}
            <label for="{{.Feature}}">{{.Feature}}: <span id="{{.Feature}}-value">{{printf "%.0f" .Value}}</span></label>
            <input type="range" id="{{.Feature}}" name="{{.Feature}}" min="{{printf "%.0f" .Min}}" max="{{printf "%.0f" .Max}}" step="1" value="{{printf "%.0f" .Value}}">
            {{end}}
            <p><button type="submit">Predict</button></p>
        </form>
    </div>
    <div class="card">
        <h3>Estimated Price</h3>
        <div class="big-price" id="price">{{if .Result}}{{.Result.Formatted}}{{else}}&ndash;{{end}}</div>
        {{if .Result}}{{if .Result.Degraded}}<p class="warning">The model returned a non-positive price for these inputs.</p>{{end}}{{end}}
    </div>
</div>
{{if .History}}
<div class="card">
    <h3>Recent Predictions</h3>
    <table>
        <tr><th>Time</th><th>Source</th><th>Price</th><th>Model</th></tr>
        {{range .History}}
        <tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{.Source}}</td><td>{{price .PredictedPrice}}</td><td>{{.ModelVersion}}</td></tr>
        {{end}}
    </table>
</div>
{{end}}
<script>
    (function() {
        var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        var ws = new WebSocket(scheme + location.host + '/ws/predict');
        var form = document.getElementById('predict-form');
        function send() {
            var features = {};
            form.querySelectorAll('input[type=range]').forEach(function(el) {
                features[el.name] = parseFloat(el.value);
                document.getElementById(el.name + '-value').textContent = el.value;
            });
            if (ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({features: features}));
            }
        }
        ws.onmessage = function(event) {
            var msg = JSON.parse(event.data);
            document.getElementById('price').textContent = msg.error ? msg.error : msg.formatted;
        };
        form.querySelectorAll('input[type=range]').forEach(function(el) {
            el.addEventListener('input', send);
        });
    })();
</script>
{{template "footer" .}}{{end}}
`

const dealsTemplate = `
{{define "deals"}}{{template "header" .}}
<div class="card">
    <h3>Filters</h3>
    <form method="GET" action="/deals">
        <label>Max price <input type="number" name="max_price" min="1" value="{{printf "%.0f" .Filter.MaxPrice}}"></label>
        <label>Min quality <input type="number" name="min_quality" min="1" max="10" value="{{.Filter.MinQuality}}"></label>
        <label>Neighborhood
            <select name="neighborhood">
                {{range .Neighborhoods}}<option value="{{.}}" {{if eq . $.Filter.Neighborhood}}selected{{end}}>{{.}}</option>{{end}}
            </select>
        </label>
        <p><button type="submit">Find deals</button></p>
    </form>
</div>
{{with .Results}}
<div class="card">
    <h3>Top {{.TopN}} Deals</h3>
    <p>{{.Candidates}} houses match{{if .Failures}}, {{len .Failures}} could not be scored{{end}}.</p>
    {{if .Deals}}
    <table>
        <tr><th>#</th><th>Row</th><th>Neighborhood</th><th>Quality</th><th>Living area</th><th>Year</th><th>Listed</th><th>Predicted</th><th>Difference</th></tr>
        {{range .Deals}}
        <tr>
            <td>{{.Rank}}</td><td>{{.Index}}</td><td>{{.Neighborhood}}</td>
            <td>{{printf "%.0f" .OverallQual}}</td><td>{{printf "%.0f" .GrLivArea}}</td><td>{{printf "%.0f" .YearBuilt}}</td>
            <td>{{price .ActualPrice}}</td><td>{{price .PredictedPrice}}</td>
            <td class="{{if gt .DeviationPct 0.0}}positive{{else}}negative-text{{end}}">{{pct .DeviationPct}}</td>
        </tr>
        {{end}}
    </table>
    {{else}}
    <p>No houses match the filter.</p>
    {{end}}
</div>
{{if .Fit.Count}}
<div class="card">
    <h3>Actual vs Predicted ({{.Fit.Count}} houses)</h3>
    <div class="metric"><span class="metric-label">MAE</span><span class="metric-value">{{price .Fit.MAE}}</span></div>
    <div class="metric"><span class="metric-label">R&sup2;</span><span class="metric-value">{{printf "%.4f" .Fit.R2}}</span></div>
</div>
{{end}}
{{end}}
{{with .Saved}}
<div class="card">
    <h3>Last Saved Ranking</h3>
    <p>{{.Timestamp.Format "2006-01-02 15:04"}} by {{.Source}}: {{len .Deals}} deals from {{.Candidates}} houses
    (max {{price .Filter.MaxPrice}}, quality {{.Filter.MinQuality}}+, {{.Filter.Neighborhood}}), model {{.ModelVersion}}.</p>
</div>
{{end}}
{{template "footer" .}}{{end}}
`
